package synth

import (
	"fmt"
	"sort"
	"strings"

	"travel-assistant/internal/domain"
)

const (
	maxPromptPOIs   = 10
	maxPromptExtras = 10
)

func buildPromptMessages(in Input) []domain.ChatMessage {
	messages := []domain.ChatMessage{
		{Role: "system", Content: buildPolicyPrompt()},
		{Role: "system", Content: buildDataPrompt(in)},
	}
	for _, turn := range in.History {
		text := strings.TrimSpace(turn.Message)
		if text == "" || !turn.Role.Valid() {
			continue
		}
		messages = append(messages, domain.ChatMessage{Role: string(turn.Role), Content: text})
	}
	messages = append(messages, domain.ChatMessage{Role: "user", Content: strings.TrimSpace(in.Query)})
	return messages
}

func buildPolicyPrompt() string {
	return strings.Join([]string{
		"Role:",
		"You are a friendly travel assistant.",
		"",
		"Task:",
		"Suggest what the user can do in the requested city on the requested day.",
		"",
		"Rules:",
		"1) Use only the events, places and weather provided in this request.",
		"2) Keep the order of the events list; earlier entries are more important.",
		"3) Always mention pinned events first.",
		"4) Mention the weather when it is provided.",
		"5) Do not invent dates, prices, addresses or links.",
		"6) Answer in plain text, in at most a few short paragraphs.",
	}, "\n")
}

func buildDataPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "City: %s\n", in.Context.City)
	if !in.Context.Date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", in.Context.Date.Format("Monday, January 2, 2006"))
	}
	if len(in.Context.Keywords) > 0 {
		fmt.Fprintf(&b, "Interests: %s\n", strings.Join(in.Context.Keywords, ", "))
	}
	if w := strings.TrimSpace(in.Weather); w != "" {
		fmt.Fprintf(&b, "Weather: %s\n", w)
	}

	b.WriteString("\nEvents:\n")
	if len(in.Events) == 0 {
		b.WriteString("(none)\n")
	}
	for i, ev := range in.Events {
		fmt.Fprintf(&b, "%d. %s", i+1, eventLine(ev))
		if ev.Pinned {
			b.WriteString(" [pinned]")
		}
		if ev.Category != "" {
			fmt.Fprintf(&b, " [%s]", ev.Category)
		}
		if ev.URL != "" {
			fmt.Fprintf(&b, " <%s>", ev.URL)
		}
		b.WriteString("\n")
	}

	if len(in.POIs) > 0 {
		b.WriteString("\nNearby places:\n")
		for i, p := range in.POIs {
			if i == maxPromptPOIs {
				break
			}
			fmt.Fprintf(&b, "- %s\n", p.Name)
		}
	}

	names := make([]string, 0, len(in.Extras))
	for name, values := range in.Extras {
		if len(values) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n%s:\n", extraTitle(name))
		for i, v := range in.Extras[name] {
			if i == maxPromptExtras {
				break
			}
			fmt.Fprintf(&b, "- %s\n", v)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func extraTitle(name string) string {
	switch name {
	case "unesco_sites":
		return "UNESCO world heritage sites"
	case "hotels_motels":
		return "Hotels and motels"
	case "historic_places":
		return "Historic places"
	}
	return strings.ReplaceAll(name, "_", " ")
}
