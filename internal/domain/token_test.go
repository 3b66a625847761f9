package domain

import "testing"

func TestAppendChartPoint_UnderCap(t *testing.T) {
	tok := &Token{}
	for i := 0; i < 10; i++ {
		tok.AppendChartPoint(ChartPoint{Time: int64(i), Value: float64(i)})
	}
	if len(tok.ChartData) != 10 {
		t.Errorf("Expected 10 points, got %d", len(tok.ChartData))
	}
}

func TestAppendChartPoint_EvictsOldest(t *testing.T) {
	tok := &Token{}
	for i := 0; i < ChartSeriesCap+5; i++ {
		tok.AppendChartPoint(ChartPoint{Time: int64(i), Value: float64(i)})
	}

	if len(tok.ChartData) != ChartSeriesCap {
		t.Fatalf("Expected series capped at %d, got %d", ChartSeriesCap, len(tok.ChartData))
	}
	// The 5 oldest points must be gone.
	if tok.ChartData[0].Time != 5 {
		t.Errorf("Expected oldest surviving point at time 5, got %d", tok.ChartData[0].Time)
	}
	last := tok.ChartData[len(tok.ChartData)-1]
	if last.Time != int64(ChartSeriesCap+4) {
		t.Errorf("Expected newest point at time %d, got %d", ChartSeriesCap+4, last.Time)
	}
}

func TestClone_Independent(t *testing.T) {
	tok := &Token{
		ID:        "tok-1",
		Tags:      []string{"trending"},
		ChartData: []ChartPoint{{Time: 1, Value: 100}},
	}

	cp := tok.Clone()
	cp.Tags[0] = "mutated"
	cp.ChartData[0].Value = 0
	cp.Price = 999

	if tok.Tags[0] != "trending" {
		t.Error("Clone shares the tags slice with the original")
	}
	if tok.ChartData[0].Value != 100 {
		t.Error("Clone shares the chart slice with the original")
	}
	if tok.Price == 999 {
		t.Error("Clone shares scalar state with the original")
	}
}

func TestHasTag(t *testing.T) {
	tok := &Token{Tags: []string{"meme", "trending"}}
	if !tok.HasTag("meme") {
		t.Error("Expected HasTag(meme) = true")
	}
	if tok.HasTag("defi") {
		t.Error("Expected HasTag(defi) = false")
	}
}

func TestCategory_IsValid(t *testing.T) {
	for _, c := range Categories() {
		if !c.IsValid() {
			t.Errorf("Category %q should be valid", c)
		}
	}
	if Category("unknown").IsValid() {
		t.Error("Unknown category should be invalid")
	}
}
