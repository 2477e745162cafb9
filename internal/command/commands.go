// Package command defines the fixed set of user-invokable actions:
// their identifiers, display names, UI placeholders and the built-in
// fallback prompt used when no prompt file is configured.
package command

import (
	"fmt"
	"strings"
)

// Action identifiers. These are stable keys: they appear in the history
// log, in per-command model overrides and in prompt file names.
const (
	Ask           = "ask"
	Chat          = "chat"
	Explainer     = "explainer"
	Friend        = "friend"
	Grammar       = "grammar"
	History       = "history"
	Longer        = "longer"
	Professional  = "professional"
	PromptBuilder = "promptBuilder"
	Rephraser     = "rephraser"
	ScrExplain    = "screenshotToExplain"
	ScrMarkdown   = "screenshotToMarkdown"
	ScrTranslate  = "screenshotToTranslate"
	Shorter       = "shorter"
	Stats         = "stats"
	Summator      = "summator"
	Translator    = "translator"
	CountTokens   = "countTokens"
)

// Command describes one action.
type Command struct {
	ID          string
	Name        string
	Description string
	Placeholder string
}

var all = map[string]Command{
	Ask: {
		ID: Ask, Name: "Ask AI",
		Description: "Ask AI any question on any topic with expert-level responses.",
		Placeholder: "Ask me any question",
	},
	Chat: {
		ID: Chat, Name: "Chat Room",
		Description: "Interactive chat with AI in a persistent conversation room with context memory.",
		Placeholder: "Start chatting with AI...",
	},
	Explainer: {
		ID: Explainer, Name: "Explain It",
		Description: "Explain the meaning of words, sentences, or concepts clearly and concisely.",
		Placeholder: "Enter text to explain it",
	},
	Friend: {
		ID: Friend, Name: "Friend Text Maker",
		Description: "Make text warmer, friendlier, and more approachable while preserving the core message.",
		Placeholder: "Enter text to make it warmer",
	},
	Grammar: {
		ID: Grammar, Name: "Fix Grammar",
		Description: "Fix grammar, spelling, punctuation, and improve readability for native speakers.",
		Placeholder: "Enter text to correct grammar",
	},
	History: {
		ID: History, Name: "GemAI - History",
		Description: "Show history of conversations with AI with search and management features.",
	},
	Longer: {
		ID: Longer, Name: "Longer Text Maker",
		Description: "Expand text by adding substantial details and examples while preserving core meaning.",
		Placeholder: "Enter text to make it longer",
	},
	Professional: {
		ID: Professional, Name: "Professional Text Maker",
		Description: "Make text formal and professional using business tone while preserving core message.",
		Placeholder: "Enter text to make it formal",
	},
	PromptBuilder: {
		ID: PromptBuilder, Name: "Prompt Builder",
		Description: "Create or improve LLM prompts using prompt engineering best practices.",
		Placeholder: "Enter any idea for new prompt",
	},
	Rephraser: {
		ID: Rephraser, Name: "Rephrase It",
		Description: "Rewrite text using different words and sentence structures while preserving meaning and style.",
		Placeholder: "Enter text to rephrase it",
	},
	ScrExplain: {
		ID: ScrExplain, Name: "Screenshot -> Explain",
		Description: "Take a screenshot and analyze it, answering questions or describing the content.",
		Placeholder: "Additional instructions if any",
	},
	ScrMarkdown: {
		ID: ScrMarkdown, Name: "Screenshot -> Markdown",
		Description: "Take a screenshot and convert all visible text to GitHub Flavored Markdown format.",
		Placeholder: "Additional instructions if any",
	},
	ScrTranslate: {
		ID: ScrTranslate, Name: "Screenshot -> Translate",
		Description: "Take a screenshot and translate all visible text between your configured languages.",
		Placeholder: "Additional instructions if any",
	},
	Shorter: {
		ID: Shorter, Name: "Shorter Text Maker",
		Description: "Make text significantly shorter and more concise while preserving all key information.",
		Placeholder: "Enter text to make it shorter",
	},
	Stats: {
		ID: Stats, Name: "GemAI - Stats",
		Description: "Show detailed usage statistics, costs, and insights across different time periods.",
	},
	Summator: {
		ID: Summator, Name: "Summarize It",
		Description: "Summarize text concisely (3-15 sentences) conveying main ideas and key points.",
		Placeholder: "Enter text to summarize it",
	},
	Translator: {
		ID: Translator, Name: "Translator",
		Description: "Translate text between your configured primary and secondary languages with natural phrasing.",
		Placeholder: "Enter text to translate.",
	},
	CountTokens: {
		ID: CountTokens, Name: "GemAI - Count Tokens",
		Description: "Count tokens in selected text or files for cost estimation and optimization.",
	},
}

// Get returns the command for an id. Unknown ids return a sentinel
// command instead of failing, matching how invocations from stale
// launch contexts are tolerated.
func Get(id string) Command {
	if c, ok := all[id]; ok {
		return c
	}
	return Command{
		ID:          "UNDEFINED_COMMAND",
		Name:        "UNDEFINED_COMMAND",
		Description: "UNDEFINED_COMMAND",
		Placeholder: "UNDEFINED_COMMAND",
	}
}

// All returns every registered command.
func All() []Command {
	out := make([]Command, 0, len(all))
	for _, c := range all {
		out = append(out, c)
	}
	return out
}

// IsUtility reports whether an action skips prompt composition
// entirely (token counting and the read-only reporting views).
func IsUtility(id string) bool {
	switch id {
	case CountTokens, History, Stats:
		return true
	}
	return false
}

// FallbackPrompt returns the built-in system prompt for an action,
// parameterized by the user's primary and secondary languages where the
// task is language-bound. Utility commands have no prompt.
func FallbackPrompt(id, primaryLang, secondaryLang string) string {
	primary := strings.ToUpper(strings.TrimSpace(primaryLang))
	secondary := strings.ToUpper(strings.TrimSpace(secondaryLang))

	switch id {
	case Ask, Chat:
		return "You are an expert assistant. Respond to the following user request strictly according to the rules: " +
			"start immediately with the core point, without introductory phrases, repeating the request, or \"fluff\". " +
			"Structure the response with short paragraphs and one-level lists (not two and more levels of list!), " +
			"use precise terminology and standard capitalization (headings as regular sentences, without \"Title Case\"). " +
			"If necessary, present different viewpoints objectively or request clarification. " +
			"ALWAYS return only the answer itself, without any explanations, greetings, or unnecessary words."

	case Translator:
		return fmt.Sprintf(`Please translate the text (%[1]s <> %[2]s),
ensuring the meaning is precisely preserved and the result sounds natural and clear to a native speaker.
To accomplish this, you may reorder words, but ONLY within their original sentence. Please do not distort or simplify the content.
If the following text is in %[1]s then translate it to %[2]s, otherwise translate following text to %[1]s.
ALWAYS ONLY return the translated text and nothing else.`, primary, secondary)

	case Grammar:
		return fmt.Sprintf("You are a %s and %s proofreader. ", primary, secondary) +
			"Make the text flawless for a native speaker: correct grammar, spelling, punctuation, and capitalization. " +
			"You can change words/word order in the sentence for better readability by a native speaker, " +
			"but without distorting the meaning or completely rephrasing, while preserving the style and structure. " +
			"ALWAYS return ONLY the corrected text or the original if it is perfect."

	case Explainer:
		return "Explain the meanings of the provided word or sentence as accurately as possible, " +
			"briefly and structured, using lists only if truly necessary. " +
			"Do not use introductory phrases, greetings, or repeat the request. " +
			"ALWAYS return ONLY the explanation itself and nothing more."

	case Summator:
		return `Summarize the following text very concisely
(3-10 sentences; for very long texts, up to 15 sentences and a list of key points),
conveying only the main ideas, facts, and conclusions. If the original text is already brief, return its essence.
Provide the response objectively and clearly, returning EXCLUSIVELY the summary itself, without any explanations.`

	case Rephraser:
		return `You are a professional "Rephraser". Your sole task is to rephrase the text provided by the user.
Rephrase the following text using different words and sentence structures, ensuring the original meaning, tone, and style are precisely preserved.
Do not add any new information or external knowledge.
ALWAYS return ONLY the rephrased text, without any preamble.`

	case Shorter:
		return `You are a professional editor specializing in creating concise texts.
Your task is to take the following text and make it significantly shorter and more concise, while preserving all the original meaning and key information.
Do not add new ideas or information. Focus on removing redundant words, phrases, and sentences that do not carry significant semantic load.
ALWAYS present the result ONLY as the final, shortened text.`

	case Longer:
		return `You are an expert in text expansion.
Expand the provided text by adding substantial yet concise details, examples, or explanations, ensuring the total length does not exceed twice the original.
Preserve the core meaning, tone, and style, and avoid any irrelevant or false information.
ALWAYS return ONLY the expanded text itself, without any preamble.`

	case Friend:
		return "Rewrite the following text to be significantly warmer, friendlier, " +
			"and just a bit positive, adopting a conversational tone and approachable " +
			"language while preserving the original core message and key information; " +
			"ALWAYS return ONLY the modified text and nothing else."

	case Professional:
		return "Rephrase the following text in your own words, using a professional and business tone, " +
			"adopting a conversational tone and approachable language while preserving the original core message and key information; " +
			"ALWAYS return ONLY the modified text and nothing else."

	case PromptBuilder:
		return "You are a specialized AI \"Prompt Generator\".\n" +
			"Your sole task is to create a ready-to-use prompt for other LLMs based on the user's structured request.\n" +
			"Do not communicate, ask questions, or comment on your work or the request.\n" +
			"Always return ONLY the generated prompt in markdown format.\n" +
			"The response MUST be formatted as code, i.e., enclosed in three backticks."

	case ScrExplain:
		return "Process the upcoming image based on the user's text. " +
			"Execute any instructions provided; if none, describe the image in detail. " +
			"If you use lists, they should be single-level and non-nested. " +
			"ALWAYS return only the result, without commentary on your work."

	case ScrMarkdown:
		return `You are provided with an image (screenshot).
Your task:
1. Analyze the image and extract all visible text.
2. Convert the extracted text to Github Flavored Markdown (GFM).
3. Precisely replicate the original text's structure and formatting using GFM: headings, lists, emphasis, code blocks, tables, and links.
ALWAYS return ONLY the resulting markdown and nothing else.`

	case ScrTranslate:
		return fmt.Sprintf(`You are provided with an image (screenshot).
Extract all visible text from the image and translate it (%[1]s <> %[2]s):
if the extracted text is in %[1]s then translate it to %[2]s, otherwise translate it to %[1]s.
Preserve the original structure of the text in the translation.
ALWAYS return ONLY the translated text and nothing else.`, primary, secondary)
	}

	return ""
}
