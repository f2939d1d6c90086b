package prompt

import "fmt"

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior credit repair analyst. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- overview.score is the credit score as a number between 300 and 850, or null when no score appears in the report.
- Every list field must be present; use an empty array when there is nothing to report.
- disputes lists items worth disputing with a credit bureau; keep entries concise and actionable.
- creditHacks are concrete score-improvement steps; creditCards are card products matched to this profile; sideHustles are income ideas suited to the person's situation.

Schema (example with empty values):
{
  "overview": {"score": null, "summary": "<string>", "positives": ["<string>"], "negatives": ["<string>"]},
  "disputes": [
    {"bureau": "<Equifax|Experian|TransUnion>", "accountName": "<string>", "accountNumber": "<string>", "issueType": "<string>", "recommendedAction": "<string>"}
  ],
  "creditHacks": [{"title": "<string>", "description": "<string>", "impact": "<low|medium|high>", "timeframe": "<string>"}],
  "creditCards": [{"name": "<string>", "issuer": "<string>", "approvalOdds": "<low|fair|good|excellent>", "reason": "<string>"}],
  "sideHustles": [{"title": "<string>", "description": "<string>", "earningPotential": "<string>"}]
}`
}

// GetUserPrompt wraps extracted report text into the analysis request.
func GetUserPrompt(reportText string) string {
	return fmt.Sprintf("Analyze this credit report and respond with the JSON per schema.\n\nREPORT:\n%s", reportText)
}

// GetVisionPrompt is the user text sent alongside an uploaded report image.
// OCR happens inside the same request; no local OCR engine is involved.
func GetVisionPrompt() string {
	return "Read all text in this credit report image, then analyze it and respond with the JSON per schema. If the image is unreadable, return the schema with empty lists and a summary explaining the problem."
}

// GetChatSystemPrompt grounds follow-up questions on a prior analysis result.
func GetChatSystemPrompt(resultJSON string) string {
	return fmt.Sprintf(`You are a credit repair assistant. Answer the user's question using only the analysis below. Be specific and practical; if the answer is not in the analysis, say so plainly. Respond in plain text, not JSON.

ANALYSIS:
%s`, resultJSON)
}
