package entity

import (
	"strings"
	"testing"
)

func validStages() []GrowStage {
	return []GrowStage{
		{StageType: StageSeed, OffsetDays: 0, Seq: 0},
		{StageType: StageGerminate, OffsetDays: 1, Seq: 1},
		{StageType: StageLight, OffsetDays: 4, Seq: 2},
		{StageType: StageHarvest, OffsetDays: 9, Seq: 3},
		{StageType: StagePack, OffsetDays: 10, Seq: 4},
	}
}

func TestValidateStagesAcceptsWellFormedChain(t *testing.T) {
	p := &Product{ID: "pea", LeadTimeDays: 10, Stages: validStages()}
	if err := p.ValidateStages(); err != nil {
		t.Fatalf("expected valid chain, got %v", err)
	}
}

func TestValidateStagesRejectsEmptyChain(t *testing.T) {
	p := &Product{ID: "pea", LeadTimeDays: 10}
	if err := p.ValidateStages(); err == nil {
		t.Fatal("expected error for empty stage list")
	}
}

func TestValidateStagesRequiresSeedAtOffsetZero(t *testing.T) {
	stages := validStages()
	stages[0].OffsetDays = 1
	p := &Product{ID: "pea", LeadTimeDays: 10, Stages: stages}
	if err := p.ValidateStages(); err == nil || !strings.Contains(err.Error(), "offset 0") {
		t.Fatalf("expected SEED offset error, got %v", err)
	}

	// No SEED at all.
	p.Stages = validStages()[1:]
	if err := p.ValidateStages(); err == nil {
		t.Fatal("expected error for chain without SEED")
	}
}

func TestValidateStagesRejectsDecreasingOffsets(t *testing.T) {
	stages := validStages()
	stages[3].OffsetDays = 2 // harvest before light
	p := &Product{ID: "pea", LeadTimeDays: 10, Stages: stages}
	if err := p.ValidateStages(); err == nil {
		t.Fatal("expected error for decreasing offsets")
	}
}

func TestValidateStagesRejectsOutOfOrderStages(t *testing.T) {
	stages := validStages()
	stages[1], stages[2] = stages[2], stages[1]
	p := &Product{ID: "pea", LeadTimeDays: 10, Stages: stages}
	if err := p.ValidateStages(); err == nil {
		t.Fatal("expected error for out-of-order stage types")
	}
}

func TestValidateStagesRequiresPackTerminal(t *testing.T) {
	stages := []GrowStage{
		{StageType: StageSeed, OffsetDays: 0},
		{StageType: StagePack, OffsetDays: 5},
		{StageType: StageHarvest, OffsetDays: 9},
	}
	p := &Product{ID: "pea", LeadTimeDays: 10, Stages: stages}
	if err := p.ValidateStages(); err == nil || !strings.Contains(err.Error(), "PACK") {
		t.Fatalf("expected PACK placement error, got %v", err)
	}
}

func TestValidateStagesRejectsOffsetBeyondLeadTime(t *testing.T) {
	stages := validStages()
	stages[4].OffsetDays = 12
	p := &Product{ID: "pea", LeadTimeDays: 10, Stages: stages}
	if err := p.ValidateStages(); err == nil || !strings.Contains(err.Error(), "lead time") {
		t.Fatalf("expected lead time error, got %v", err)
	}
}

func TestStageTypeOrder(t *testing.T) {
	if StageSeed.Order() != 0 || StagePack.Order() != 4 {
		t.Error("unexpected stage ordering")
	}
	if StageType("WASH").Valid() {
		t.Error("unknown stage type reported valid")
	}
	if StageType("WASH").Order() != -1 {
		t.Error("unknown stage type should order as -1")
	}
}
