// Package apiclient wraps the acquisition backend REST API.
//
// Every call that obtains an HTTP response returns it as a Response. Responses outside the 2xx range
// are additionally reported as *StatusError so callers can branch with errors.As; failures that never
// produced a response wrap ErrTransport.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const (
	headerAuthorization      = "Authorization"
	headerContentType        = "Content-Type"
	headerAccept             = "Accept"
	bearerPrefix             = "Bearer "
	contentTypeJSON          = "application/json"
	logEventUnauthorized     = "unauthorized_response"
	logFieldMethod           = "method"
	logFieldURL              = "url"
	errorMessageTransport    = "apiclient: transport failure"
	errorMessageEncodeBody   = "apiclient: encode request body"
	errorMessageBuildRequest = "apiclient: build request"
	errorMessageReadBody     = "apiclient: read response body"
	errorMessageMultipart    = "apiclient: build multipart body"
	defaultStatusMessage     = "request failed with status %d"
)

var (
	// ErrTransport indicates no HTTP response was obtained.
	ErrTransport = errors.New(errorMessageTransport)
)

// UnauthorizedObserver is notified of every 401 response.
type UnauthorizedObserver func(method string, requestURL string, response Response)

// Config captures the dependencies of a Client.
type Config struct {
	BaseURL              string
	HTTPClient           *http.Client
	Logger               *zap.Logger
	UnauthorizedObserver UnauthorizedObserver
}

// Client issues authenticated REST calls against the backend.
type Client struct {
	baseURL              string
	httpClient           *http.Client
	logger               *zap.Logger
	unauthorizedObserver UnauthorizedObserver
}

// New constructs a Client. A nil HTTP client uses http.DefaultClient's transport defaults.
func New(configuration Config) *Client {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := configuration.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	client := &Client{
		baseURL:              strings.TrimRight(strings.TrimSpace(configuration.BaseURL), "/"),
		httpClient:           httpClient,
		logger:               logger,
		unauthorizedObserver: configuration.UnauthorizedObserver,
	}
	if client.unauthorizedObserver == nil {
		client.unauthorizedObserver = client.logUnauthorized
	}
	return client
}

type requestOptions struct {
	requiresAuth  bool
	token         string
	customHeaders map[string]string
}

// RequestOption customizes a single request.
type RequestOption func(*requestOptions)

// WithToken supplies the bearer token attached when the request requires authentication.
func WithToken(token string) RequestOption {
	return func(options *requestOptions) {
		options.token = strings.TrimSpace(token)
	}
}

// WithoutAuth marks the request as public; no Authorization header is sent.
func WithoutAuth() RequestOption {
	return func(options *requestOptions) {
		options.requiresAuth = false
	}
}

// WithHeaders overrides default headers such as Content-Type.
func WithHeaders(headers map[string]string) RequestOption {
	return func(options *requestOptions) {
		if options.customHeaders == nil {
			options.customHeaders = make(map[string]string, len(headers))
		}
		for name, value := range headers {
			options.customHeaders[name] = value
		}
	}
}

// Get issues a GET request with optional query parameters.
func (client *Client) Get(ctx context.Context, path string, query url.Values, options ...RequestOption) (Response, error) {
	requestURL := client.resolve(path)
	if len(query) > 0 {
		separator := "?"
		if strings.Contains(requestURL, "?") {
			separator = "&"
		}
		requestURL += separator + query.Encode()
	}
	return client.do(ctx, http.MethodGet, requestURL, nil, "", options)
}

// Post issues a POST request with a JSON body. A nil body sends no payload.
func (client *Client) Post(ctx context.Context, path string, body any, options ...RequestOption) (Response, error) {
	return client.send(ctx, http.MethodPost, path, body, options)
}

// Put issues a PUT request with a JSON body.
func (client *Client) Put(ctx context.Context, path string, body any, options ...RequestOption) (Response, error) {
	return client.send(ctx, http.MethodPut, path, body, options)
}

// Patch issues a PATCH request with a JSON body.
func (client *Client) Patch(ctx context.Context, path string, body any, options ...RequestOption) (Response, error) {
	return client.send(ctx, http.MethodPatch, path, body, options)
}

// Delete issues a DELETE request.
func (client *Client) Delete(ctx context.Context, path string, options ...RequestOption) (Response, error) {
	return client.do(ctx, http.MethodDelete, client.resolve(path), nil, "", options)
}

// MultipartFile describes the file part of a multipart upload.
type MultipartFile struct {
	FieldName string
	FileName  string
	Content   io.Reader
}

// PostMultipart uploads form fields and an optional file as multipart/form-data.
func (client *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, file *MultipartFile, options ...RequestOption) (Response, error) {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)
	for name, value := range fields {
		if writeErr := writer.WriteField(name, value); writeErr != nil {
			return Response{}, fmt.Errorf("%s: %w", errorMessageMultipart, writeErr)
		}
	}
	if file != nil && file.Content != nil {
		part, partErr := writer.CreateFormFile(file.FieldName, file.FileName)
		if partErr != nil {
			return Response{}, fmt.Errorf("%s: %w", errorMessageMultipart, partErr)
		}
		if _, copyErr := io.Copy(part, file.Content); copyErr != nil {
			return Response{}, fmt.Errorf("%s: %w", errorMessageMultipart, copyErr)
		}
	}
	if closeErr := writer.Close(); closeErr != nil {
		return Response{}, fmt.Errorf("%s: %w", errorMessageMultipart, closeErr)
	}

	multipartOptions := append([]RequestOption{WithHeaders(map[string]string{headerContentType: writer.FormDataContentType()})}, options...)
	return client.do(ctx, http.MethodPost, client.resolve(path), &buffer, contentTypeJSON, multipartOptions)
}

func (client *Client) send(ctx context.Context, method string, path string, body any, options []RequestOption) (Response, error) {
	var payload io.Reader
	if body != nil {
		encodedBody, encodeErr := json.Marshal(body)
		if encodeErr != nil {
			return Response{}, fmt.Errorf("%s: %w", errorMessageEncodeBody, encodeErr)
		}
		payload = bytes.NewReader(encodedBody)
	}
	return client.do(ctx, method, client.resolve(path), payload, contentTypeJSON, options)
}

func (client *Client) do(ctx context.Context, method string, requestURL string, body io.Reader, defaultContentType string, options []RequestOption) (Response, error) {
	resolvedOptions := requestOptions{requiresAuth: true}
	for _, option := range options {
		if option != nil {
			option(&resolvedOptions)
		}
	}

	request, requestErr := http.NewRequestWithContext(ctx, method, requestURL, body)
	if requestErr != nil {
		return Response{}, fmt.Errorf("%s: %w", errorMessageBuildRequest, requestErr)
	}
	request.Header.Set(headerAccept, contentTypeJSON)
	if defaultContentType != "" {
		request.Header.Set(headerContentType, defaultContentType)
	}
	if resolvedOptions.requiresAuth && resolvedOptions.token != "" {
		request.Header.Set(headerAuthorization, bearerPrefix+resolvedOptions.token)
	}
	for name, value := range resolvedOptions.customHeaders {
		request.Header.Set(name, value)
	}

	httpResponse, doErr := client.httpClient.Do(request)
	if doErr != nil {
		return Response{}, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, requestURL, doErr)
	}
	defer httpResponse.Body.Close()

	responseBody, readErr := io.ReadAll(httpResponse.Body)
	if readErr != nil {
		return Response{}, fmt.Errorf("%w: %s: %v", ErrTransport, errorMessageReadBody, readErr)
	}

	response := Response{
		Status: httpResponse.StatusCode,
		Data:   json.RawMessage(bytes.TrimSpace(responseBody)),
		Header: httpResponse.Header,
	}

	if response.Status == http.StatusUnauthorized {
		client.unauthorizedObserver(method, requestURL, response)
	}

	if !response.OK() {
		return response, &StatusError{Status: response.Status, Message: response.Message(), Response: response}
	}
	return response, nil
}

func (client *Client) resolve(path string) string {
	trimmedPath := strings.TrimSpace(path)
	if strings.HasPrefix(trimmedPath, "http://") || strings.HasPrefix(trimmedPath, "https://") {
		return trimmedPath
	}
	if trimmedPath == "" {
		return client.baseURL
	}
	if !strings.HasPrefix(trimmedPath, "/") {
		trimmedPath = "/" + trimmedPath
	}
	return client.baseURL + trimmedPath
}

func (client *Client) logUnauthorized(method string, requestURL string, _ Response) {
	client.logger.Warn(logEventUnauthorized, zap.String(logFieldMethod, method), zap.String(logFieldURL, requestURL))
}
