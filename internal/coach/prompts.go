// Package coach asks an LLM to grade execution, surface insights and hold
// a mindset conversation. Nothing here feeds back into analytics.
package coach

import "encoding/json"

// MindsetInstruction is the system prompt of the mindset chat.
const MindsetInstruction = `You are my trading psychology journal assistant.
Your job is to help me document and understand my emotions, thoughts, and behaviour during trades.
Do not give trading signals.
Focus only on emotions, mindset, discipline, habits, and stress levels.
Ask about daily rule adherence (e.g., did they exceed their 1-2 trade limit?).`

const graderSystemPrompt = `You are an institutional prop firm risk manager grading execution quality.
You judge process, not outcome: discipline, planning and rule adherence.`

const auditorSystemPrompt = `You are an elite trading performance psychologist.
You look for the link between discipline, stress and realized P&L.`

var gradeSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "overallGrade": {"type": "string"},
    "qualityScore": {"type": "number"},
    "summary": {"type": "string"},
    "tradeGrades": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "tradeId": {"type": "string"},
          "grade": {"type": "string"},
          "reason": {"type": "string"}
        },
        "required": ["tradeId", "grade", "reason"]
      }
    }
  },
  "required": ["overallGrade", "qualityScore", "summary", "tradeGrades"]
}`)

var insightSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "insights": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "content": {"type": "string"},
          "type": {"type": "string", "enum": ["positive", "negative", "neutral"]}
        },
        "required": ["title", "content", "type"]
      }
    }
  },
  "required": ["insights"]
}`)
