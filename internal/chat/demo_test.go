package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDemoAnswer(t *testing.T) {
	tests := []struct {
		question string
		heading  string
	}{
		{"Dame un RESUMEN de la demanda", "## Resumen PIB por demanda"},
		{"contribuciones al crecimiento", "## Contribuciones al crecimiento"},
		{"¿Qué pasó con la industria?", "## Contribuciones al crecimiento"},
		{"Comparar oferta y demanda", "## Comparación: PIB por oferta vs demanda"},
		{"Términos políticos recientes", "## Términos políticos"},
		{"terminos politicos", "## Términos políticos"},
		{"Validaciones de la serie trimestral", "## Validaciones visuales"},
		{"¿Cuál es la inflación?", DemoFallbackTitle},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got := DemoAnswer(tt.question)
			assert.True(t, strings.HasPrefix(got, tt.heading), "got %q", got)
		})
	}
}

func TestQuickPromptsHaveDemoAnswers(t *testing.T) {
	for _, q := range QuickPrompts {
		assert.NotContains(t, DemoAnswer(q), DemoFallbackTitle, q)
	}
}
