package analysis

import (
	"testing"

	"bastion-icc/core/store"
)

func TestParseModelOutputPlainJSON(t *testing.T) {
	raw := `{"severity":"HIGH","immediate_actions":["evacuate"],"resource_recommendations":["fire crew"],"reasoning":"visible flames"}`
	result, parsed := ParseModelOutput(raw)
	if !parsed {
		t.Fatal("expected successful parse")
	}
	if result.Severity != store.SeverityHigh {
		t.Fatalf("severity %q", result.Severity)
	}
	if len(result.ImmediateActions) != 1 || result.ImmediateActions[0] != "evacuate" {
		t.Fatalf("actions %+v", result.ImmediateActions)
	}
}

func TestParseModelOutputStripsFences(t *testing.T) {
	raw := "```json\n{\"severity\":\"critical\",\"reasoning\":\"gas leak\"}\n```"
	result, parsed := ParseModelOutput(raw)
	if !parsed {
		t.Fatal("fenced JSON must parse")
	}
	if result.Severity != store.SeverityCritical {
		t.Fatalf("severity %q", result.Severity)
	}
}

func TestParseModelOutputTextAroundJSON(t *testing.T) {
	raw := "Here is my assessment:\n{\"severity\":\"low\",\"reasoning\":\"minor\"}\nHope that helps!"
	result, parsed := ParseModelOutput(raw)
	if !parsed {
		t.Fatal("surrounding prose must be tolerated")
	}
	if result.Severity != store.SeverityLow {
		t.Fatalf("severity %q", result.Severity)
	}
}

func TestParseModelOutputUnknownSeverityDefaultsMedium(t *testing.T) {
	raw := `{"severity":"apocalyptic","reasoning":"overstated"}`
	result, parsed := ParseModelOutput(raw)
	if !parsed {
		t.Fatal("payload with content must parse")
	}
	if result.Severity != store.SeverityMedium {
		t.Fatalf("severity %q", result.Severity)
	}
}

func TestParseModelOutputGarbageFallsBack(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{broken", "```\n```"} {
		result, parsed := ParseModelOutput(raw)
		if parsed {
			t.Fatalf("garbage %q reported as parsed", raw)
		}
		if result.Severity != store.SeverityMedium {
			t.Fatalf("fallback severity %q", result.Severity)
		}
		if len(result.ImmediateActions) == 0 || len(result.ResourceRecommendations) == 0 || result.Reasoning == "" {
			t.Fatal("fallback must carry generic guidance")
		}
	}
}
