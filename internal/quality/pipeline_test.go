package quality

import (
	"strings"
	"testing"

	"github.com/lernzeit/templatebank/internal/curriculum"
	"github.com/lernzeit/templatebank/internal/template"
)

func testRule() *curriculum.Rule {
	return &curriculum.Rule{
		Grade:      2,
		Quarter:    curriculum.Q1,
		Domain:     curriculum.DomainArithmetic,
		MinNumber:  1,
		MaxNumber:  20,
		Operations: []string{curriculum.OpAdd, curriculum.OpSub},
	}
}

func validInstance() *template.Instance {
	return &template.Instance{
		ID:          "inst-1",
		TemplateID:  "tpl-1",
		Prompt:      "Wie viel ist 7 + 5?",
		Solution:    "12",
		Distractors: []string{"11", "13", "10"},
		Explanation: "Addiere die beiden Zahlen: 7 plus 5 ergibt 12.",
		Type:        template.TypeMultipleChoice,
		Domain:      curriculum.DomainArithmetic,
		Grade:       2,
		Quarter:     curriculum.Q1,
		Difficulty:  template.DifficultyEasy,
	}
}

func TestValidate_AcceptsValidInstance(t *testing.T) {
	res := New().Validate(validInstance(), testRule())
	if !res.IsValid {
		t.Fatalf("valid instance rejected: errors=%v warnings=%v score=%.2f", res.Errors, res.Warnings, res.Score)
	}
	if res.Score != 1.0 {
		t.Fatalf("clean instance should score 1.0, got %.2f", res.Score)
	}
}

func TestValidate_AllMajorChecksFailClampsToZero(t *testing.T) {
	// Structural, curriculum, type, difficulty and math all fail at once:
	// 30+20+25+10+35 deductions clamp to exactly 0.
	inst := &template.Instance{
		Prompt:      "Was ist 900 * 900? Also gut jetzt kommen noch ganz viele weitere Wörter damit dieser Text sicher über dreißig Wörter lang wird und die Schwierigkeitsprüfung bei einer leichten Frage anschlägt oder nicht wahr ja.",
		Solution:    "1800",
		Distractors: []string{"1", "1"},
		Type:        template.TypeMultipleChoice,
		Domain:      curriculum.DomainArithmetic,
		Grade:       0,
		Quarter:     "Q9",
		Difficulty:  template.DifficultyEasy,
	}

	res := New().Validate(inst, testRule())
	if res.IsValid {
		t.Fatal("instance must be rejected")
	}
	if res.Score != 0 {
		t.Fatalf("score must clamp to exactly 0, got %.2f", res.Score)
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected errors")
	}
}

func TestValidate_WarningsAloneCanRejectByScore(t *testing.T) {
	// No hard errors, but every warning deduction fires: placeholder (10),
	// thin explanation (10), difficulty mismatch (10) and missing terminal
	// punctuation (5) leave 0.65, under the 0.7 acceptance threshold.
	inst := validInstance()
	inst.Prompt = "Wie viel ist 7 + 5 liebe {name} jetzt kommen noch ganz viele weitere Wörter damit dieser Text ganz sicher die Grenze von dreißig Wörtern überschreitet und zwar wirklich deutlich mehr als genug Wörter insgesamt"
	inst.Explanation = "kurz"
	inst.Solution = "12"

	res := New().Validate(inst, testRule())
	if len(res.Errors) != 0 {
		t.Fatalf("expected no hard errors, got %v", res.Errors)
	}
	if res.Score != 0.65 {
		t.Fatalf("expected score 0.65, got %.2f", res.Score)
	}
	if res.IsValid {
		t.Fatal("score below threshold must reject even without errors")
	}
}

func TestValidate_NilRuleDowngradesToWarning(t *testing.T) {
	res := New().Validate(validInstance(), nil)
	if !res.IsValid {
		t.Fatalf("missing rule must not reject: %v", res.Errors)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "compliance not verified") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a compliance warning, got %v", res.Warnings)
	}
}

func TestValidate_CurriculumRangeViolation(t *testing.T) {
	inst := validInstance()
	inst.Prompt = "Wie viel ist 70 + 50?"
	inst.Solution = "120"

	res := New().Validate(inst, testRule())
	if res.IsValid {
		t.Fatal("out-of-range numbers must reject")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "outside curriculum range") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a curriculum range error, got %v", res.Errors)
	}
}

func TestValidate_DecimalsSkipCurriculumRange(t *testing.T) {
	inst := validInstance()
	inst.Prompt = "Lena kauft 2 Äpfel zu je 1,50 €. Wie viel bezahlt sie?"
	inst.Solution = "3"
	inst.Distractors = []string{"2", "4", "5"}

	res := New().Validate(inst, testRule())
	for _, e := range res.Errors {
		if strings.Contains(e, "outside curriculum range") {
			t.Fatalf("decimal prices must not trip the integer range check: %v", res.Errors)
		}
	}
}

func TestValidate_MultipleChoiceDistractors(t *testing.T) {
	inst := validInstance()
	inst.Distractors = []string{"11", "13"}
	if res := New().Validate(inst, testRule()); res.IsValid {
		t.Fatal("two distractors must reject")
	}

	inst = validInstance()
	inst.Distractors = []string{"11", "13", "12"} // duplicates the solution
	if res := New().Validate(inst, testRule()); res.IsValid {
		t.Fatal("distractor equal to the solution must reject")
	}
}

func TestValidate_OrderingUnitNormalizedDuplicate(t *testing.T) {
	inst := validInstance()
	inst.Type = template.TypeOrdering
	inst.Distractors = nil
	inst.Prompt = "Ordne die Längen der Größe nach."
	inst.Solution = "150 cm, 1,5 m, 2 m"
	inst.Items = []string{"1,5 m", "150 cm", "2 m"}

	res := New().Validate(inst, testRule())
	if res.IsValid {
		t.Fatal("1,5 m equals 150 cm after normalization and must reject")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "unit normalization") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a normalization error, got %v", res.Errors)
	}
}

func TestValidate_OrderingNeedsThreeItems(t *testing.T) {
	inst := validInstance()
	inst.Type = template.TypeOrdering
	inst.Distractors = nil
	inst.Prompt = "Ordne die Zahlen der Größe nach."
	inst.Solution = "3, 7"
	inst.Items = []string{"7", "3"}

	if res := New().Validate(inst, testRule()); res.IsValid {
		t.Fatal("fewer than 3 ordering items must reject")
	}
}

func TestValidate_MatchingPairShape(t *testing.T) {
	inst := validInstance()
	inst.Type = template.TypeMatching
	inst.Distractors = nil
	inst.Prompt = "Verbinde die Aufgaben mit den Ergebnissen."
	inst.Solution = "3+4=7, 2+6=8"
	inst.Items = []string{"3+4=7", "kein Paar"}

	if res := New().Validate(inst, testRule()); res.IsValid {
		t.Fatal("malformed matching pairs must reject")
	}
}

func TestValidate_MathErrorRejects(t *testing.T) {
	inst := validInstance()
	inst.Solution = "13"
	inst.Distractors = []string{"11", "12", "10"}

	res := New().Validate(inst, testRule())
	if res.IsValid {
		t.Fatal("wrong arithmetic must reject")
	}
}
