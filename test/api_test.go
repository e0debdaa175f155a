package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/2beens/liftlog/internal/auth"
)

// login opens a session the way `liftctl login` does and returns its token.
func (s *IntegrationTestSuite) login(ctx context.Context, userID string) string {
	token, err := s.sessions.Login(ctx, userID, time.Now())
	s.Require().NoError(err)
	s.Require().NotEmpty(token)
	return token
}

// do sends a request to the running server and returns the status and body.
func (s *IntegrationTestSuite) do(ctx context.Context, method, path, token string, body any) (int, []byte) {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(auth.SessionTokenHeader, token)
	}

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) decode(data []byte, v any) {
	s.Require().NoError(json.Unmarshal(data, v), string(data))
}
