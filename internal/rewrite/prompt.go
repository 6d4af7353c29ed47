package rewrite

import "encoding/json"

// SystemInstruction is sent to every LLM provider.
const SystemInstruction = "You rewrite the provided article to match the tone, formatting, and structure of the reference articles. " +
	"Preserve factual accuracy and intent. Improve headings, flow, and readability. " +
	"Keep it suitable for web publishing with clear sections."

type userMessage struct {
	OriginalTitle   string `json:"original_title"`
	OriginalContent string `json:"original_content"`
	Reference1      string `json:"reference_1"`
	Reference2      string `json:"reference_2"`
}

// BuildUserMessage encodes req as the JSON user message.
func BuildUserMessage(req Request) (string, error) {
	data, err := json.Marshal(userMessage{
		OriginalTitle:   req.Title,
		OriginalContent: req.Content,
		Reference1:      req.reference(0),
		Reference2:      req.reference(1),
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
