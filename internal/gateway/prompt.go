package gateway

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// UpdateArtifactTool is the only capability offered to the model.
const UpdateArtifactTool = "updateArtifact"

// ImplementationPrompt is the default system instruction for a run.
const ImplementationPrompt = `You are a software developer tasked with implementing milestones from a project plan.

Instructions:

- Implement the milestone provided by the user.
- Update ` + "`index.html`" + ` and ` + "`styles.css`" + ` in the artifacts folder according to the milestone requirements.
- Use vanilla HTML and CSS.
- After completing the implementation, mark the milestone as completed in ` + "`plan.md`" + ` by replacing ` + "`- [ ]`" + ` with ` + "`- [x]`" + `.

Remember:

- Do not modify any other milestones.
- Ensure your code is properly formatted and error-free.
- Provide a brief summary of the changes you made.
`

// UserPrompt embeds the milestone in the user turn.
func UserPrompt(milestone string) string {
	return fmt.Sprintf("Implement the following milestone:\n%s\n\n"+
		"Update index.html and styles.css accordingly. "+
		"After completion, mark the milestone as completed in plan.md.", milestone)
}

// Messages builds the ordered system and user turns for one request.
func Messages(milestone, systemPrompt string) []llms.MessageContent {
	if systemPrompt == "" {
		systemPrompt = ImplementationPrompt
	}
	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, UserPrompt(milestone)),
	}
}

// Tools declares the updateArtifact function.
func Tools() []llms.Tool {
	return []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        UpdateArtifactTool,
				Description: "Create or overwrite a file in the artifacts folder with the given contents.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"filename": map[string]any{
							"type":        "string",
							"description": "Name of the artifact file, e.g. index.html or styles.css.",
						},
						"contents": map[string]any{
							"type":        "string",
							"description": "The complete new contents of the file.",
						},
					},
					"required": []string{"filename", "contents"},
				},
			},
		},
	}
}
