package clarity

import "testing"

func TestDetectFigurative(t *testing.T) {
	findings := Detect("Break a leg in your performance today!", Figurative)
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %d", len(findings))
	}
	if findings[0].Check != Figurative {
		t.Fatalf("expected figurative finding, got %s", findings[0].Check)
	}
	if findings[0].Phrase != "break a leg" {
		t.Fatalf("unexpected phrase: %q", findings[0].Phrase)
	}
}

func TestDetectVague(t *testing.T) {
	findings := Detect("I guess we could meet whenever, something like that.", Vague)
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %d", len(findings))
	}
	if findings[0].Check != Vague {
		t.Fatalf("expected vague finding, got %s", findings[0].Check)
	}
}

func TestDetectEarliestPhraseWins(t *testing.T) {
	findings := Detect("I guess the deadline is whenever.", Vague)
	if len(findings) != 1 || findings[0].Phrase != "i guess" {
		t.Fatalf("expected earliest phrase, got %+v", findings)
	}
}

func TestDetectCleanMessage(t *testing.T) {
	if findings := Detect("My week was busy but good. The report is done."); findings != nil {
		t.Fatalf("expected no findings, got %+v", findings)
	}
}

func TestDetectEmptyMessage(t *testing.T) {
	if findings := Detect("   "); findings != nil {
		t.Fatalf("expected no findings for blank message, got %+v", findings)
	}
}

func TestDetectOnePerCheck(t *testing.T) {
	findings := Detect("It was a piece of cake, I felt like a million bucks, maybe.")
	if len(findings) != 2 {
		t.Fatalf("expected one finding per check, got %+v", findings)
	}
}
