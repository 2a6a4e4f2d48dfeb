// HTTP invocation of the external API.
//
// Builds one HTTP request per aggregated call from the OIS description:
// server URL + operation path, parameter mapping into query, header and
// path slots, fixed operation parameters, and apiKey credentials read
// from the environment.

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/airnode/coordinator/pkg/config"
	"github.com/airnode/coordinator/pkg/retries"
)

const maxResponseBytes = 1 << 20

// Call invokes the OIS endpoint with the aggregated call's parameters
// and returns the raw response body.
func Call(ctx context.Context, cfg *config.Config, trigger config.RequestTrigger, parameters map[string]string) ([]byte, error) {
	ois, endpoint, err := cfg.FindEndpoint(trigger.OISTitle, trigger.EndpointName)
	if err != nil {
		return nil, err
	}
	if len(ois.APISpecifications.Servers) == 0 {
		return nil, fmt.Errorf("OIS %q declares no servers", ois.Title)
	}

	req, err := buildRequest(ois, endpoint, parameters)
	if err != nil {
		return nil, err
	}

	return retries.Retry(ctx, func(ctx context.Context) ([]byte, error) {
		httpReq := req.Clone(ctx)
		resp, err := http.DefaultClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("API call failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read API response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("API responded with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return body, nil
	})
}

func buildRequest(ois *config.OIS, endpoint *config.Endpoint, parameters map[string]string) (*http.Request, error) {
	path := endpoint.Operation.Path
	query := url.Values{}
	headers := http.Header{}

	assign := func(op config.OperationParameter, value string) error {
		switch op.In {
		case "query":
			query.Set(op.Name, value)
		case "header":
			headers.Set(op.Name, value)
		case "path":
			path = strings.ReplaceAll(path, "{"+op.Name+"}", url.PathEscape(value))
		default:
			return fmt.Errorf("unsupported parameter location %q", op.In)
		}
		return nil
	}

	// Endpoint parameters: requester value, or the declared default
	for _, p := range endpoint.Parameters {
		value, present := parameters[p.Name]
		if !present {
			if p.Default == "" {
				continue
			}
			value = p.Default
		}
		if err := assign(p.OperationParameter, value); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
	}

	// Fixed operation parameters always win
	for _, fp := range endpoint.FixedOperationParameters {
		if err := assign(fp.OperationParameter, fp.Value); err != nil {
			return nil, fmt.Errorf("fixed parameter %q: %w", fp.OperationParameter.Name, err)
		}
	}

	// API credentials from the environment
	for schemeName, scheme := range ois.APISpecifications.SecuritySchemes {
		if scheme.Type != "apiKey" {
			continue
		}
		value := os.Getenv(config.SecurityEnvName(ois.Title, schemeName))
		if value == "" {
			continue
		}
		if err := assign(config.OperationParameter{In: scheme.In, Name: scheme.Name}, value); err != nil {
			return nil, fmt.Errorf("security scheme %q: %w", schemeName, err)
		}
	}

	base := strings.TrimRight(ois.APISpecifications.Servers[0].URL, "/")
	full := base + "/" + strings.TrimLeft(path, "/")
	if encoded := query.Encode(); encoded != "" {
		full += "?" + encoded
	}

	method := strings.ToUpper(endpoint.Operation.Method)
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequest(method, full, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build API request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}
