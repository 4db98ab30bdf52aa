package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

var (
	// ErrMalformedToolCall indicates an updateArtifact call whose arguments
	// are not valid JSON or lack a filename or contents.
	ErrMalformedToolCall = errors.New("malformed tool call")

	// ErrGatewayUnavailable indicates the completion service could not be
	// reached, rejected the request, or returned nothing usable.
	ErrGatewayUnavailable = errors.New("gateway unavailable")
)

// Result is what one completion request produced: an *ArtifactUpdate or a
// *PlainReply.
type Result interface {
	isResult()
}

// ArtifactUpdate asks for Filename to be overwritten with Contents.
// Reply carries any free text the model sent alongside the call.
type ArtifactUpdate struct {
	Filename string
	Contents string
	Reply    string
}

// PlainReply is a text-only answer with no artifact change.
type PlainReply struct {
	Text string
}

func (*ArtifactUpdate) isResult() {}
func (*PlainReply) isResult()     {}

type updateArtifactArgs struct {
	Filename string `json:"filename"`
	Contents string `json:"contents"`
}

// decodeChoice turns the first choice of a response into a Result.
func decodeChoice(choice *llms.ContentChoice) (Result, error) {
	call := findUpdateCall(choice)
	if call == nil {
		return &PlainReply{Text: choice.Content}, nil
	}

	var args updateArtifactArgs
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return nil, fmt.Errorf("%w: invalid arguments: %v", ErrMalformedToolCall, err)
	}
	switch {
	case args.Filename == "":
		return nil, fmt.Errorf("%w: missing filename", ErrMalformedToolCall)
	case args.Contents == "":
		return nil, fmt.Errorf("%w: missing contents for %s", ErrMalformedToolCall, args.Filename)
	}

	return &ArtifactUpdate{
		Filename: args.Filename,
		Contents: args.Contents,
		Reply:    choice.Content,
	}, nil
}

// findUpdateCall returns the first updateArtifact call, checking tool calls
// before the legacy single function call. Calls to other functions are ignored.
func findUpdateCall(choice *llms.ContentChoice) *llms.FunctionCall {
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall != nil && tc.FunctionCall.Name == UpdateArtifactTool {
			return tc.FunctionCall
		}
	}
	if choice.FuncCall != nil && choice.FuncCall.Name == UpdateArtifactTool {
		return choice.FuncCall
	}
	return nil
}
