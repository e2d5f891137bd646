package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// sessionRequirements holds the per-call credentials negotiated with the
// sentinel endpoint. They are never cached; every call fetches fresh ones.
type sessionRequirements struct {
	deviceID   string
	token      string
	seed       string
	difficulty string
}

// negotiateSession generates a fresh device id and performs the single
// requirements round trip. Any failure is terminal for the call.
func (s *Server) negotiateSession(ctx context.Context) (*sessionRequirements, error) {
	deviceID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.requirementsURL, strings.NewReader("{}"))
	if err != nil {
		return nil, &SessionError{Kind: SessionErrorNetwork, Err: err}
	}
	setCommonHeaders(req)
	req.Header.Set("oai-device-id", deviceID)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &SessionError{Kind: SessionErrorNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &SessionError{Kind: SessionErrorNetwork, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &SessionError{
			Kind: SessionErrorNetwork,
			Err:  fmt.Errorf("requirements endpoint returned status %d, %s", resp.StatusCode, body),
		}
	}

	var data requirementsResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &SessionError{
			Kind: SessionErrorMalformedJSON,
			Err:  fmt.Errorf("malformed requirements payload: %w", err),
		}
	}
	switch {
	case data.Token == "":
		return nil, &SessionError{
			Kind: SessionErrorMissingField,
			Err:  fmt.Errorf("requirements payload missing token: %s", body),
		}
	case data.ProofOfWork == nil:
		return nil, &SessionError{
			Kind: SessionErrorMissingField,
			Err:  fmt.Errorf("requirements payload missing proofofwork: %s", body),
		}
	case data.ProofOfWork.Seed == "" || data.ProofOfWork.Difficulty == "":
		return nil, &SessionError{
			Kind: SessionErrorMissingField,
			Err:  fmt.Errorf("requirements payload missing proofofwork seed or difficulty: %s", body),
		}
	}

	return &sessionRequirements{
		deviceID:   deviceID,
		token:      data.Token,
		seed:       data.ProofOfWork.Seed,
		difficulty: data.ProofOfWork.Difficulty,
	}, nil
}
