package chatbot

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/plugmind-go/internal/langdetect"
)

// greetings are matched against the trimmed, lower-cased message.
var greetings = map[string]struct{}{
	"hello":   {},
	"hi":      {},
	"hey":     {},
	"bonjour": {},
	"salut":   {},
	"yo":      {},
	"hola":    {},
	"السلام":  {},
	"مرحبا":   {},
}

// isGreeting reports whether text is exactly one of the greeting tokens.
func isGreeting(text string) bool {
	_, ok := greetings[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// defaultSupportDomain is used when the bot has no usable website URL.
const defaultSupportDomain = "example.com"

// supportEmail derives the support contact from the website host.
func supportEmail(websiteURL string) string {
	host := hostOf(websiteURL)
	if host == "" {
		host = defaultSupportDomain
	}
	return "support@" + host
}

// brandName derives a display brand from the website host: "www." is
// dropped, the first label is kept and capitalized.
func brandName(websiteURL string) string {
	host := strings.ReplaceAll(hostOf(websiteURL), "www.", "")
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return "our website"
	}
	first, size := utf8.DecodeRuneInString(label)
	return string(unicode.ToUpper(first)) + strings.ToLower(label[size:])
}

// hostOf returns the hostname of raw, or "" when raw has no resolvable host.
func hostOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// fallbackMessage returns the "insufficient information" reply for lang.
func fallbackMessage(lang langdetect.Language, email string) string {
	switch lang {
	case langdetect.French:
		return "❗ Je suis désolé, je ne dispose pas de cette information. Veuillez contacter le support du site : " + email
	case langdetect.Arabic:
		return "❗ عذرًا، لا أمتلك هذه المعلومة. يُرجى التواصل مع دعم الموقع: " + email
	case langdetect.English, langdetect.Default:
		return "❗ I'm sorry, I don't have this information. Please contact our website support: " + email
	}
	return "❗ I'm sorry, I don't have this information. Please contact our website support: " + email
}

const frenchTemplate = `Tu es un assistant professionnel de support pour **{brand}**.

Réponds comme si tu faisais partie de l'équipe {brand}, en utilisant uniquement les informations fournies ci-dessous.

Ces informations proviennent de la documentation interne et du site officiel de {brand}. Sois clair, concis et utile. Si tu n'es pas sûr, recommande de contacter le support ou de consulter le site directement.

---
Contexte :
{context}

---
Question :
{question}

Réponse :
`

const englishTemplate = `You are a professional, helpful support assistant for **{brand}**.

Answer the user as if you're part of the {brand} team, using only the information provided below.

This information comes from internal documentation and the official {brand} website. Be clear, concise, and helpful. If you're unsure, recommend contacting support or checking the site directly.

---
Context:
{context}

---
Question:
{question}

Answer:
`

const arabicTemplate = `أنت مساعد دعم محترف يعمل مع فريق **{brand}**.

أجب على المستخدم باستخدام المعلومات الموجودة أدناه فقط.

تستند هذه المعلومات إلى الوثائق الداخلية والموقع الرسمي لـ {brand}. كن واضحًا ومباشرًا. إذا لم تكن متأكدًا، اقترح على المستخدم التواصل مع الدعم أو مراجعة الموقع.

---
السياق:
{context}

---
السؤال:
{question}

الإجابة:
`

// Compiled templates, one per supported language.
var (
	frenchPrompt  = prompt.FromMessages(schema.FString, schema.UserMessage(frenchTemplate))
	englishPrompt = prompt.FromMessages(schema.FString, schema.UserMessage(englishTemplate))
	arabicPrompt  = prompt.FromMessages(schema.FString, schema.UserMessage(arabicTemplate))
)

// promptFor selects the grounded-answer template for lang.
func promptFor(lang langdetect.Language) prompt.ChatTemplate {
	switch lang {
	case langdetect.French:
		return frenchPrompt
	case langdetect.Arabic:
		return arabicPrompt
	case langdetect.English, langdetect.Default:
		return englishPrompt
	}
	return englishPrompt
}
