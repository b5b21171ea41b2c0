package biography

import (
	"strings"
	"text/template"
)

const promptTemplate = `You are a roleplay story writer for a mafia-themed Discord server called "{{.Community}}".
The city is called "{{.City}}" and is full of places like Coding Alley, Debuggers Street,
The Underworld Casino, Don's Office, The Underworld Academy, Police HQ, Black Market,
Hidden Docks, Tech Lab and the Abandoned Warehouse.

The server runs on a class system of roles:
- The Don: head of the family, highest authority.
- Consigliere: the Don's closest advisor.
- The Don's Kin: the Don's close family.
- Associate: approved members of the family.
- Outsider: people outside the family with limited contact.
- Shady Snitch: informants holding secret information (a role, not a person).

Your task: write a short, exciting story for the new member that is dynamic, surprising
and full of mafia flavor, with a light satirical touch. The new member is the center of
the events{{if .Inviter.Known}}, and the person who invited them appears directly in the story{{end}}.

Requirements:
1. A mafia alias for the new member, inspired by their nickname or skills.
2. A dramatic backstory: joining is never easy. A chase, a challenge, a dangerous job or an unexpected coincidence.
{{- if .Inviter.Known}}
3. Weave in the inviter: use their name, their role and part of their previous story.
{{- else}}
3. Nobody vouched for the new member. They found their own way into the city.
{{- end}}
4. Keep it thrilling with mafia vocabulary: covert operations, threats, pursuits, black-market deals, break-ins.
5. Coding touches: technical or hacking skills may save the day or reveal a secret, but the mood stays mafia.
6. Light comedy: not too serious.
7. Short, fun and full of surprises.

New member:
- Expectations from the server: {{.Answers.expectation}}
- Mafia nickname: {{.Answers.mafiaNickname}}
- Superpower: {{.Answers.superpower}}
- Strength and flaw: {{.Answers.prosAndCons}}
{{- range .Extra}}
- {{.Question}} {{.Text}}
{{- end}}

{{if .Inviter.Known -}}
Inviter:
- Name: {{.Inviter.Name}}
- Role: {{or .Inviter.Role "unknown"}}
- Previous story: {{or .Inviter.Biography "none recorded"}}
{{- else -}}
Inviter: no inviter. The new member arrived on their own.
{{- end}}

Final instructions:
- Never repeat the same story.
- Use every piece of information about the new member.
- Make the story unique every time.
- Keep the style creative and gripping.
- The mafia nickname must appear repeatedly.
- The superpower must play a central role in the events.
- End with a hint of what the member expects from the server.
`

var prompt = template.Must(template.New("biography").Parse(promptTemplate))

type inviterData struct {
	Name      string
	Role      string
	Biography string
}

func (i inviterData) Known() bool {
	return strings.TrimSpace(i.Name) != ""
}

type extraAnswer struct {
	Question string
	Text     string
}

type promptData struct {
	Community string
	City      string
	Answers   map[string]string
	Extra     []extraAnswer
	Inviter   inviterData
}
