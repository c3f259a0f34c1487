package classifier

import (
	"context"
	"fmt"
	"strings"

	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/pkg/llm"
	"marketplace-assistant-be/pkg/store"
)

var stageDescriptions = map[store.Stage]string{
	store.StageWelcome:         "welcome message if the user gives a greeting.",
	store.StageProductSearch:   "This step is mandatory, if the user asks something they will access the RAG containing product information and search.",
	store.StageProductQA:       "If the user has any questions about the product, they will access the RAG and search for more details.",
	store.StageCollectInfo:     "This stage is compulsory, when the user selects a product we must collect initial data to start the purchase.",
	store.StageConfirmPurchase: "This step is sequential to CollectInfo, it will complete the purchase and generate a link to track the order.",
	store.StageThankYou:        "This last step is mandatory and will thank you and ask for feedback.",
}

// LLMClassifier asks a language model, at temperature 0, to name the stage
type LLMClassifier struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

// NewLLMClassifier creates a new LLM backed classifier
func NewLLMClassifier(llmProvider llm.LLMProvider, logger logger.ILogger) *LLMClassifier {
	return &LLMClassifier{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Classify returns ClassificationError on transport failure and
// UnrecognizedStageError when the reply is not exactly a stage name.
func (c *LLMClassifier) Classify(ctx context.Context, history []store.Turn, visited []store.Stage) (store.Stage, error) {
	prompt := BuildPrompt(history, visited)

	reply, err := c.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		return "", &ClassificationError{Err: err}
	}

	raw := strings.TrimSpace(reply)
	stage, err := store.ParseStage(raw)
	if err != nil {
		return "", &UnrecognizedStageError{Raw: raw}
	}

	c.logger.Debug("Classifier", "Stage inferred", map[string]interface{}{
		"stage":   string(stage),
		"visited": stageNames(visited),
	})
	return stage, nil
}

// BuildPrompt renders the stage-inference instruction
func BuildPrompt(history []store.Turn, visited []store.Stage) string {
	var prompt strings.Builder

	prompt.WriteString("Given the conversation history:\n'")
	prompt.WriteString(FormatTranscript(history))
	prompt.WriteString("'\n\n")

	names := stageNames(store.AllStages())
	prompt.WriteString("Determine the current stage of the marketplace process. The stages are in order:\n")
	prompt.WriteString(strings.Join(names, " > "))
	prompt.WriteString(".\n\n")

	prompt.WriteString("The details of each stage are:\n")
	for _, s := range store.AllStages() {
		prompt.WriteString(fmt.Sprintf("%s: %s\n", s, stageDescriptions[s]))
	}
	prompt.WriteString("\n")

	prompt.WriteString(fmt.Sprintf("The user has already visited these stages: '%s'\n\n", strings.Join(stageNames(visited), ", ")))

	prompt.WriteString("If the user dont visited any stage, the next stage will be Welcome or ProductSearch.\n")
	prompt.WriteString("If the user pass the name, email and phone number, the next stage will be ConfirmPurchase.\n\n")
	prompt.WriteString("What is the current stage? Reply only the specified stage name.")

	return prompt.String()
}

// FormatTranscript renders turns one per line as "Human: ..." / "AI: ..."
func FormatTranscript(history []store.Turn) string {
	lines := make([]string, 0, len(history))
	for _, t := range history {
		speaker := "Human"
		if t.Role == store.RoleAssistant {
			speaker = "AI"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, t.Content))
	}
	return strings.Join(lines, "\n")
}

func stageNames(stages []store.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}
