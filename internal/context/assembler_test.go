package context

import "testing"

func TestStandardAssembler_Assemble(t *testing.T) {
	a := &StandardAssembler{}
	history := []Message{
		{Role: RoleUser, Content: "prev question"},
		{Role: RoleAssistant, Content: "prev answer"},
	}
	result := a.Assemble("You are a study buddy.", "Study level: undergrad", history, "new question")

	if len(result) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(result))
	}

	if result[0].Role != RoleSystem || result[0].Content != "You are a study buddy." {
		t.Errorf("unexpected persona message: %+v", result[0])
	}
	if result[1].Role != RoleSystem || result[1].Content != "Study level: undergrad" {
		t.Errorf("unexpected context message: %+v", result[1])
	}
	if result[2].Role != RoleUser || result[2].Content != "prev question" {
		t.Errorf("unexpected history[0]: %+v", result[2])
	}
	if result[3].Role != RoleAssistant || result[3].Content != "prev answer" {
		t.Errorf("unexpected history[1]: %+v", result[3])
	}
	if result[4].Role != RoleUser || result[4].Content != "new question" {
		t.Errorf("unexpected user message: %+v", result[4])
	}
}

func TestStandardAssembler_EmptyContextAndHistory(t *testing.T) {
	a := &StandardAssembler{}
	result := a.Assemble("system", "  ", nil, "hello")

	if len(result) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(result))
	}
	if result[0].Role != RoleSystem {
		t.Errorf("expected system role, got %q", result[0].Role)
	}
	if result[1].Role != RoleUser || result[1].Content != "hello" {
		t.Errorf("unexpected user message: %+v", result[1])
	}
}
