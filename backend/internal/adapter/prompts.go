package adapter

import "fmt"

// entityPrompt is the system prompt for the entity extraction collaborator.
// The model is asked for a bare JSON array so the response can be parsed
// without any surrounding prose.
const entityPrompt = `You are an entity extraction assistant. Given a message, identify projects, tasks, concepts, or technologies.
Respond with an array of objects like:
[
  {"label": "Project X", "type": "project", "meta": {"desc": "machine learning pipeline"}},
  {"label": "Setup GitHub CI", "type": "task", "meta": {"priority": "high"}}
]
If no entities are found, return an empty array.`

// answerPrompt builds the system prompt for answering a query against
// retrieved graph context
func answerPrompt(context string) string {
	return fmt.Sprintf(`You are Orin, a memory assistant. Use this graph context:

%s

Answer the user's question below using the knowledge above. If uncertain, say so.`, context)
}
