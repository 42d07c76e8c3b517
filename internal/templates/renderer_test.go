package templates

import (
	"reflect"
	"strings"
	"testing"

	"outreach_backend/internal/campaign/domain"
)

func TestRenderSubstitutesVariables(t *testing.T) {
	got := Render(
		"Hello {{first_name}} at {{company}}",
		"Reach me via {{ calendar_link }}",
		map[string]string{
			"first_name":    "Ada",
			"company":       "Acme",
			"calendar_link": "https://calendly.com/acme",
		},
	)
	if got.Subject != "Hello Ada at Acme" {
		t.Errorf("subject = %q", got.Subject)
	}
	if got.Body != "Reach me via https://calendly.com/acme" {
		t.Errorf("body = %q", got.Body)
	}
}

func TestRenderMissingVariableIsEmpty(t *testing.T) {
	got := Render("Hi {{first_name}}", "{{unknown}} text", map[string]string{})
	if got.Subject != "Hi " {
		t.Errorf("subject = %q", got.Subject)
	}
	if got.Body != " text" {
		t.Errorf("body = %q", got.Body)
	}
}

func TestVariablesFirstAppearanceOrder(t *testing.T) {
	got := Variables("{{b}} {{a}} {{b}} {{ c }} {{}}")
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Variables = %v, want %v", got, want)
	}
}

func TestValidate(t *testing.T) {
	v := Validate("Hi {{first_name}}", "From {{company}}, see {{calendar_link}}", []string{"first_name", "company"})
	if v.Valid {
		t.Fatal("expected invalid: calendar_link has no backing column")
	}
	if !reflect.DeepEqual(v.Missing, []string{"calendar_link"}) {
		t.Fatalf("Missing = %v", v.Missing)
	}

	v = Validate("Hi {{first_name}}", "plain body", []string{"first_name"})
	if !v.Valid || len(v.Missing) != 0 {
		t.Fatalf("expected valid, got %+v", v)
	}
}

func TestBuiltinIndustryFallback(t *testing.T) {
	known := Builtin("fintech", domain.StageInitial)
	def := Builtin("healthcare", domain.StageInitial)
	if known.Subject == def.Subject {
		t.Fatal("fintech and healthcare sequences must differ")
	}

	for _, industry := range []string{"", "  FinTech  ", "aerospace"} {
		got := Builtin(industry, domain.StageInitial)
		if got.Subject == "" || got.Body == "" {
			t.Fatalf("Builtin(%q) returned an empty template", industry)
		}
	}
	if got := Builtin("aerospace", domain.StageInitial); got.Subject != def.Subject {
		t.Errorf("unknown industry must fall back to the default sequence")
	}
	if got := Builtin("  FinTech  ", domain.StageInitial); got.Subject != known.Subject {
		t.Errorf("industry matching must be case- and space-insensitive")
	}
}

func TestBuiltinReplyStage(t *testing.T) {
	a := Builtin("healthcare", domain.StageReply)
	b := Builtin("edtech", domain.StageReply)
	if a.Subject != b.Subject || a.Body != b.Body {
		t.Fatal("reply template must be industry-independent")
	}
	if !strings.Contains(a.Body, "{{calendar_link}}") {
		t.Fatal("reply template must reference the calendar link")
	}
}

func TestLeadVariablesDefaults(t *testing.T) {
	lead := &domain.Lead{
		Email: "lead@example.com",
		Data:  map[string]string{"industry": "fintech"},
	}
	vars := LeadVariables(lead)
	if vars["first_name"] != "there" {
		t.Errorf("first_name fallback = %q", vars["first_name"])
	}
	if vars["company"] != "your company" {
		t.Errorf("company fallback = %q", vars["company"])
	}
	if vars["email"] != "lead@example.com" {
		t.Errorf("email = %q", vars["email"])
	}
	if vars["industry"] != "fintech" {
		t.Errorf("imported columns must pass through, got %q", vars["industry"])
	}

	lead.Data = map[string]string{"first_name": "Ada", "company": "Acme"}
	vars = LeadVariables(lead)
	if vars["first_name"] != "Ada" || vars["company"] != "Acme" {
		t.Errorf("provided values must not be overridden: %v", vars)
	}
}
