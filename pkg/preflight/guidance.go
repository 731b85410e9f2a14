package preflight

import (
	"fmt"
	"strings"

	"conductor/pkg/llm"
)

// Guidance returns actionable remediation text for a probe classification.
func Guidance(c Classification, provider llm.Provider) string {
	switch c {
	case ClassificationUnauthorized:
		if env := apiKeyHint(provider); env != "" {
			return fmt.Sprintf("Set the %s environment variable or store the key with conductor -set-key.", env)
		}
		return "Configure a valid API credential for the provider."

	case ClassificationRateLimited:
		return "The provider is rate limiting this account. Wait for the quota window to reset or reduce concurrency."

	case ClassificationUnavailable:
		return "The provider returned a server error. Check the provider status page and retry shortly."

	case ClassificationNetworkError:
		if provider == llm.ProviderOllama {
			return "Could not reach the Ollama server. Start it with: ollama serve"
		}
		return "Could not reach the provider. Check network connectivity, DNS, and proxy settings."

	case ClassificationUnknown:
		return "The probe failed for an unrecognized reason. Run with CONDUCTOR_DEBUG=1 for the full error."

	default:
		return ""
	}
}

// apiKeyHint names the environment variable that carries the credential.
func apiKeyHint(provider llm.Provider) string {
	switch provider {
	case llm.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case llm.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case llm.ProviderGoogle:
		return "GOOGLE_GENAI_API_KEY"
	default:
		return ""
	}
}

// FormatResult renders a probe result for terminal display.
func FormatResult(r Result, provider llm.Provider) string {
	var sb strings.Builder

	if r.Reachable {
		sb.WriteString(fmt.Sprintf("Preflight passed\n  [PASS] %s: %s\n", provider, r.Message))
		return sb.String()
	}

	sb.WriteString("Preflight failed\n")
	sb.WriteString(fmt.Sprintf("  [%s] %s: %s\n", strings.ToUpper(string(r.Classification)), provider, r.Message))
	if g := Guidance(r.Classification, provider); g != "" {
		sb.WriteString(fmt.Sprintf("    %s\n", g))
	}
	return sb.String()
}
