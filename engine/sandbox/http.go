package sandbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/taskweave/taskweave/logger"
	"go.uber.org/zap"
)

// httpCall is the single outbound capability injected into scripts:
// httpClient({url, method, headers, payload, queryParams}). The response is
// returned as {success, data: {status, body}} or {success, error}.
func (s *Sandbox) httpCall(req map[string]any) map[string]any {
	rawUrl, _ := req["url"].(string)
	method, _ := req["method"].(string)
	if len(rawUrl) == 0 || len(method) == 0 {
		return callFailure("httpClient requires url and method")
	}
	target, err := url.Parse(rawUrl)
	if err != nil {
		return callFailure(err.Error())
	}
	if queryParams, ok := req["queryParams"].(map[string]any); ok {
		query := target.Query()
		for k, v := range queryParams {
			query.Set(k, fmt.Sprintf("%v", v))
		}
		target.RawQuery = query.Encode()
	}
	var body io.Reader
	if payload, ok := req["payload"]; ok && payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return callFailure(err.Error())
		}
		body = bytes.NewReader(data)
	}
	httpReq, err := http.NewRequest(method, target.String(), body)
	if err != nil {
		return callFailure(err.Error())
	}
	if headers, ok := req["headers"].(map[string]any); ok {
		for k, v := range headers {
			httpReq.Header.Set(k, fmt.Sprintf("%v", v))
		}
	}
	if body != nil && len(httpReq.Header.Get("Content-Type")) == 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		logger.Error("script http call failed", zap.String("url", rawUrl), zap.Error(err))
		return callFailure(err.Error())
	}
	defer resp.Body.Close()
	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return callFailure(err.Error())
	}
	var respBody any
	if err := json.Unmarshal(respData, &respBody); err != nil {
		respBody = string(respData)
	}
	return map[string]any{
		"success": true,
		"data": map[string]any{
			"status": resp.StatusCode,
			"body":   respBody,
		},
	}
}

func callFailure(message string) map[string]any {
	return map[string]any{
		"success": false,
		"error":   message,
	}
}
