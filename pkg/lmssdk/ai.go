package lmssdk

import (
	"context"
	"errors"
	"net/http"
)

// ChatHistoryLimit is how many prior messages accompany a chat request.
const ChatHistoryLimit = 5

// Chat sends message to the assistant along with the tail of history.
func (c *Client) Chat(ctx context.Context, message string, history []ChatMessage) (*ChatResponse, error) {
	if message == "" {
		return nil, errors.New("chat message is empty")
	}
	if len(history) > ChatHistoryLimit {
		history = history[len(history)-ChatHistoryLimit:]
	}
	if history == nil {
		history = []ChatMessage{}
	}

	out, err := SendJSON[ChatResponse](ctx, c, &Request{
		Method: http.MethodPost,
		Path:   "/ai/chat",
		Body:   ChatRequest{Message: message, History: history},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GenerateQuiz(ctx context.Context, lessonID ID, numQuestions int) ([]QuizQuestion, error) {
	if numQuestions <= 0 {
		numQuestions = 5
	}
	out, err := SendJSON[GenerateQuizResponse](ctx, c, &Request{
		Method: http.MethodPost,
		Path:   "/ai/generate-quiz",
		Body:   GenerateQuizRequest{LessonID: lessonID, NumQuestions: numQuestions},
	})
	if err != nil {
		return nil, err
	}
	return out.Questions, nil
}

func (c *Client) SaveQuiz(ctx context.Context, req SaveQuizRequest) (*SaveQuizResponse, error) {
	out, err := SendJSON[SaveQuizResponse](ctx, c, &Request{
		Method: http.MethodPost,
		Path:   "/ai/save-quiz",
		Body:   req,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UnpublishQuiz(ctx context.Context, req UnpublishQuizRequest) (*MessageResponse, error) {
	out, err := SendJSON[MessageResponse](ctx, c, &Request{
		Method: http.MethodPost,
		Path:   "/ai/unpublish-quiz",
		Body:   req,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
