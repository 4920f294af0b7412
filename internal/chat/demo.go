package chat

import (
	"fmt"
	"strings"
)

func mdImg(src, alt string) string {
	return fmt.Sprintf("![%s](%s)", alt, src)
}

// DemoAnswer returns a canned Markdown answer chosen by keywords in the
// question. It never contacts the backend.
func DemoAnswer(question string) string {
	q := strings.ToLower(question)

	switch {
	case strings.Contains(q, "resumen") && strings.Contains(q, "demanda"):
		return lines(
			"## Resumen PIB por demanda (CR 2021–2024)",
			mdImg("/demo/plots/pib_demanda_trimestral.png", "PIB por Demanda trimestral"),
			"- **Consumo privado**: normalización post-pandemia, tracción sostenida.",
			"- **Formación Bruta de Capital**: repunte 2022–2023; moderación 2024 por tasas.",
			"- **Exportaciones netas**: resilientes con volatilidad en manufactura avanzada.",
			"",
			"_Gráfico generado en `borrador_demanda.ipynb` (export PNG)._",
			"Fuentes: BCCR (series trimestrales, demanda).",
		)

	case strings.Contains(q, "contribuciones") || strings.Contains(q, "industria"):
		return lines(
			"## Contribuciones al crecimiento 2023-T2 por industria",
			mdImg("/demo/plots/contribuciones_crecimiento_2023T2.png", "Contribuciones por industria"),
			"- **Manufactura**: +1.2 pp (impulso de dispositivos médicos).",
			"- **Servicios empresariales/TIC**: +0.7 pp.",
			"- **Construcción**: +0.3 pp (obras privadas).",
			"- **Agro**: −0.2 pp (choques climáticos).",
			"",
			"_Gráfico generado en `borrador_oferta.ipynb` / `pib/oferta.py` (export PNG)._",
			"Nota: cifras indicativas para demo.",
		)

	case strings.Contains(q, "comparar") && (strings.Contains(q, "oferta") || strings.Contains(q, "demanda")):
		return lines(
			"## Comparación: PIB por oferta vs demanda (2024 anual)",
			mdImg("/demo/plots/pib_oferta_vs_demanda_2024.png", "Oferta vs Demanda 2024"),
			"- **Brecha estadística** acotada tras revisión.",
			"- **Oferta**: fortaleza en servicios y manufactura de alta tecnología.",
			"- **Demanda**: consumo privado robusto; inversión sensible a tasas.",
			"",
			"_Gráficos generados en `borrador_oferta.ipynb` y `borrador_demanda.ipynb`._",
		)

	case strings.Contains(q, "términos políticos") || strings.Contains(q, "terminos politicos"):
		return lines(
			"## Términos políticos que afectan la actividad",
			mdImg("/demo/plots/political_terms_wordcloud.png", "Nube de términos políticos"),
			"1) Regla fiscal y balance estructural.",
			"2) Reforma tributaria y eficiencia recaudatoria.",
			"3) Política de competencia y atracción IED.",
			"",
			"_Visual derivada de `political_terms.py` / `plots.py`._",
		)

	case strings.Contains(q, "validaciones") || strings.Contains(q, "serie trimestral"):
		return lines(
			"## Validaciones visuales de la serie trimestral del PIB",
			mdImg("/demo/plots/pib_checks_seasonality.png", "Estacionalidad"),
			mdImg("/demo/plots/pib_checks_outliers.png", "Outliers"),
			"- Chequeo de estacionalidad (picos por trimestre).",
			"- Consistencia **YoY** vs **QoQ**.",
			"- Detección de puntos de quiebre (cambios metodológicos).",
			"",
			"_Generado en `validaciones.ipynb` / `cuentas_nacionales/visual_checks.py`._",
		)
	}

	return lines(
		DemoFallbackTitle,
		"Puedo ayudarte con demanda/oferta, contribuciones, comparaciones, términos políticos y validaciones de series.",
		"Usa las preguntas rápidas o pide un gráfico específico exportado desde los notebooks.",
	)
}

// DemoFallbackTitle heads the answer given when no keyword matches.
const DemoFallbackTitle = "## Modo demo"

// QuickPrompts are suggested questions offered before the first message.
var QuickPrompts = []string{
	"Dame un resumen del PIB por demanda",
	"Contribuciones al crecimiento por industria",
	"Comparar PIB por oferta y demanda",
	"Términos políticos que afectan la actividad",
	"Validaciones de la serie trimestral",
}

func lines(parts ...string) string {
	return strings.Join(parts, "\n")
}
