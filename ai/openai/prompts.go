package openai

import (
	"fmt"
	"strings"

	"github.com/archivemind/corpora/ai"
)

const jsonOutputRules = `Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.`

const topicSchema = `{
  "type": "object",
  "properties": {
    "topic": {
      "type": "string",
      "pattern": "^[a-z]+( [a-z]+)*$"
    }
  },
  "required": ["topic"],
  "additionalProperties": false
}`

const topicPromptTemplate = `Assign a single topic label to the given text.

%s

Rules:
- The topic must be lowercase, 1-4 words, and describe what the text is about as a whole.
- Prefer the most specific label that still covers the full text.
- If the text has no discernible topic, return "topic": "general".

Example:
Input: "BadgerDB stores keys and values in an LSM tree and serves reads from a value log."
Output:
{"topic": "embedded key value storage"}`

const summarySchema = `{
  "type": "object",
  "properties": {
    "summary": {
      "type": "string"
    }
  },
  "required": ["summary"],
  "additionalProperties": false
}`

const summaryPromptTemplate = `Summarize the given text in at most %d sentences.

%s

Rules:
- Preserve the main claims of the text; do not add information that is not present.
- Write complete sentences in neutral register.
- If the text is too short to summarize, return it unchanged as the summary.`

const entitiesSchema = `{
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "text": {
            "type": "string"
          },
          "type": {
            "type": "string"
          }
        },
        "required": ["text", "type"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities"],
  "additionalProperties": false
}`

const entitiesPromptTemplate = `Extract the named entities mentioned in the given text and return them as JSON.

%s

Rules:
- "text" is the entity exactly as it appears in the input.
- "type" must match exactly one of the listed values: %s.
- Include only entities that are explicitly mentioned. Do not hallucinate.
- If no entities can be identified, return "entities": [].

Example:
Input: "Grace Hopper joined Eckert-Mauchly in Philadelphia in 1949."
Output:
{
  "entities": [
    {"text":"Grace Hopper","type":"person"},
    {"text":"Eckert-Mauchly","type":"organization"},
    {"text":"Philadelphia","type":"place"},
    {"text":"1949","type":"date"}
  ]
}`

const keyPhrasesSchema = `{
  "type": "object",
  "properties": {
    "key_phrases": {
      "type": "array",
      "items": {
        "type": "string"
      }
    }
  },
  "required": ["key_phrases"],
  "additionalProperties": false
}`

const keyPhrasesPromptTemplate = `Extract the most salient phrases from the given text and return them as JSON.

%s

Rules:
- Return at most %d phrases, most salient first.
- Phrases must be lowercase, 1-4 words, and taken from or closely paraphrasing the text.
- If no phrases can be identified, return "key_phrases": [].

Example:
Input: "The scraper archives the previous snapshot before swapping in the new one."
Output:
{"key_phrases": ["snapshot rotation", "scraper", "archive"]}`

func buildTopicPrompt() string {
	return fmt.Sprintf(topicPromptTemplate, fmt.Sprintf(jsonOutputRules, topicSchema))
}

func buildSummaryPrompt(sentences int) string {
	return fmt.Sprintf(summaryPromptTemplate, sentences, fmt.Sprintf(jsonOutputRules, summarySchema))
}

func buildEntitiesPrompt() string {
	return fmt.Sprintf(entitiesPromptTemplate,
		fmt.Sprintf(jsonOutputRules, entitiesSchema),
		strings.Join(ai.EntityTypes, ", "))
}

func buildKeyPhrasesPrompt(max int) string {
	return fmt.Sprintf(keyPhrasesPromptTemplate, fmt.Sprintf(jsonOutputRules, keyPhrasesSchema), max)
}
