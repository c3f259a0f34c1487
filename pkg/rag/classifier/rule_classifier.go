package classifier

import (
	"context"
	"regexp"
	"strings"

	"marketplace-assistant-be/pkg/store"
)

var (
	emailPattern = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.]+`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
)

var greetingWords = []string{"oi", "olá", "ola", "bom dia", "boa tarde", "boa noite", "hello", "hi", "e aí", "e ai"}

var purchaseWords = []string{"comprar", "quero esse", "quero este", "quero esta", "vou levar", "fechar", "finalizar", "fechar pedido", "adicionar ao carrinho"}

var thanksWords = []string{"obrigado", "obrigada", "valeu", "feedback", "tchau", "até mais", "ate mais"}

var detailWords = []string{"?", "qual", "quanto", "preço", "preco", "detalhe", "garantia", "cor", "tamanho", "voltagem", "especifica"}

// RuleClassifier is a deterministic keyword classifier. It looks at the last
// user turn and the visited stages only.
type RuleClassifier struct{}

// NewRuleClassifier creates a new rule based classifier
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func (c *RuleClassifier) Classify(_ context.Context, history []store.Turn, visited []store.Stage) (store.Stage, error) {
	last := lastUserTurn(history)
	lower := strings.ToLower(strings.TrimSpace(last))

	has := func(s store.Stage) bool {
		for _, v := range visited {
			if v == s {
				return true
			}
		}
		return false
	}

	switch {
	case emailPattern.MatchString(lower) && phonePattern.MatchString(lower):
		if has(store.StageCollectInfo) {
			return store.StageConfirmPurchase, nil
		}
		return store.StageCollectInfo, nil
	case has(store.StageConfirmPurchase) && containsAny(lower, thanksWords):
		return store.StageThankYou, nil
	case containsAny(lower, purchaseWords):
		return store.StageCollectInfo, nil
	case isGreeting(lower) && !has(store.StageProductSearch):
		return store.StageWelcome, nil
	case has(store.StageProductSearch) && containsAny(lower, detailWords):
		return store.StageProductQA, nil
	default:
		return store.StageProductSearch, nil
	}
}

func lastUserTurn(history []store.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == store.RoleUser {
			return history[i].Content
		}
	}
	return ""
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// isGreeting matches short messages made of a greeting and little else
func isGreeting(text string) bool {
	trimmed := strings.Trim(text, "!.,? ")
	if len(strings.Fields(trimmed)) > 4 {
		return false
	}
	for _, g := range greetingWords {
		if trimmed == g || strings.HasPrefix(trimmed, g+" ") || strings.HasPrefix(trimmed, g+",") {
			return true
		}
	}
	return false
}
