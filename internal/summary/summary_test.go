package summary

import (
	"math/rand"
	"reflect"
	"testing"

	"pagepulse/internal/model"
)

func result(url string, device model.DeviceType, cats ...model.CategoryScore) model.RunResult {
	return model.RunResult{URL: url, DeviceType: device, Categories: cats}
}

func cat(id string, score float64) model.CategoryScore {
	return model.CategoryScore{ID: id, Title: id, Score: score}
}

func mustGet(t *testing.T, s model.Scores, id string) float64 {
	t.Helper()
	v, ok := s.Get(id)
	if !ok {
		t.Fatalf("expected %q in %v", id, s.Keys())
	}
	return v
}

func TestBuildTotals(t *testing.T) {
	sum := Build([]model.RunResult{
		result("A", model.DeviceMobile, cat("performance", 0.5)),
		result("A", model.DeviceDesktop, cat("performance", 0.7)),
		result("B", model.DeviceMobile, cat("performance", 0.9)),
	})
	if sum.TotalURLs != 2 {
		t.Fatalf("TotalURLs = %d, want 2", sum.TotalURLs)
	}
	if sum.TotalTests != 3 {
		t.Fatalf("TotalTests = %d, want 3", sum.TotalTests)
	}
}

func TestBuildAverages(t *testing.T) {
	sum := Build([]model.RunResult{
		result("A", model.DeviceMobile, cat("performance", 0.8), cat("seo", 0.91)),
		result("A", model.DeviceDesktop, cat("performance", 0.9)),
	})
	if got := mustGet(t, sum.AverageScores, "performance"); got != 0.85 {
		t.Fatalf("average performance = %v, want 0.85", got)
	}
	if got := mustGet(t, sum.AverageScores, "seo"); got != 0.91 {
		t.Fatalf("average seo = %v, want 0.91", got)
	}

	desktop, ok := sum.Device(model.DeviceDesktop)
	if !ok {
		t.Fatal("expected desktop scores")
	}
	if _, ok := desktop.Get("seo"); ok {
		t.Fatal("seo never measured on desktop; must not be zero-filled")
	}
	byURL, ok := sum.ScoresByURL.Get("A")
	if !ok || mustGet(t, byURL, "performance") != 0.85 {
		t.Fatalf("unexpected scores for A: %v", byURL.Keys())
	}
}

func TestBuildRoundsToTwoDecimals(t *testing.T) {
	sum := Build([]model.RunResult{
		result("A", model.DeviceMobile, cat("performance", 0.333)),
		result("B", model.DeviceMobile, cat("performance", 0.334)),
		result("C", model.DeviceMobile, cat("performance", 0.5)),
	})
	if got := mustGet(t, sum.AverageScores, "performance"); got != 0.39 {
		t.Fatalf("average performance = %v, want 0.39", got)
	}
}

func TestBuildMinMax(t *testing.T) {
	sum := Build([]model.RunResult{
		result("A", model.DeviceMobile, cat("performance", 0.41), cat("seo", 1)),
		result("B", model.DeviceDesktop, cat("performance", 0.97), cat("seo", 0.62)),
	})
	if mustGet(t, sum.MinScores, "performance") != 0.41 || mustGet(t, sum.MaxScores, "performance") != 0.97 {
		t.Fatalf("unexpected performance extremes")
	}
	if mustGet(t, sum.MinScores, "seo") != 0.62 || mustGet(t, sum.MaxScores, "seo") != 1 {
		t.Fatalf("unexpected seo extremes")
	}
}

func TestBuildEmptyInput(t *testing.T) {
	sum := Build(nil)
	if sum.TotalURLs != 0 || sum.TotalTests != 0 {
		t.Fatalf("expected zero totals, got %+v", sum)
	}
	if sum.AverageScores.Len() != 0 || sum.ScoresByDevice.Len() != 0 || sum.ScoresByURL.Len() != 0 ||
		sum.MinScores.Len() != 0 || sum.MaxScores.Len() != 0 {
		t.Fatal("expected every mapping to be empty")
	}
}

func TestBuildValuesIndependentOfInputOrder(t *testing.T) {
	in := []model.RunResult{
		result("A", model.DeviceMobile, cat("performance", 0.44), cat("seo", 0.9)),
		result("A", model.DeviceDesktop, cat("performance", 0.81), cat("seo", 0.95)),
		result("B", model.DeviceMobile, cat("performance", 0.67), cat("accessibility", 0.88)),
		result("C", model.DeviceDesktop, cat("seo", 0.73)),
	}
	want := Build(in)

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10; i++ {
		shuffled := append([]model.RunResult(nil), in...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Build(shuffled)
		if got.TotalURLs != want.TotalURLs || got.TotalTests != want.TotalTests {
			t.Fatalf("totals changed with order")
		}
		for _, id := range want.AverageScores.Keys() {
			if mustGet(t, got.AverageScores, id) != mustGet(t, want.AverageScores, id) {
				t.Fatalf("average %s changed with order", id)
			}
		}
		for _, d := range want.ScoresByDevice.Keys() {
			w, _ := want.ScoresByDevice.Get(d)
			g, ok := got.ScoresByDevice.Get(d)
			if !ok {
				t.Fatalf("device %s missing", d)
			}
			for _, id := range w.Keys() {
				if mustGet(t, g, id) != mustGet(t, w, id) {
					t.Fatalf("device %s %s changed with order", d, id)
				}
			}
		}
	}
}

func TestAveragesInsertionOrder(t *testing.T) {
	got := Averages([]model.RunResult{
		result("A", model.DeviceMobile, cat("seo", 1), cat("performance", 1)),
		result("B", model.DeviceMobile, cat("accessibility", 1), cat("seo", 1)),
	})
	if want := []string{"seo", "performance", "accessibility"}; !reflect.DeepEqual(got.Keys(), want) {
		t.Fatalf("keys = %v, want %v", got.Keys(), want)
	}
}

func TestMinScore(t *testing.T) {
	if _, ok := MinScore(nil); ok {
		t.Fatal("expected no score for empty input")
	}
	v, ok := MinScore([]model.RunResult{
		result("A", model.DeviceMobile, cat("performance", 0.7), cat("seo", 0.52)),
		result("B", model.DeviceDesktop, cat("performance", 0.61)),
	})
	if !ok || v != 0.52 {
		t.Fatalf("MinScore = %v (ok=%v), want 0.52", v, ok)
	}
}

func TestBuildFoldsCategorySynonyms(t *testing.T) {
	sum := Build([]model.RunResult{
		result("A", model.DeviceMobile, cat("bestpractices", 0.9)),
		result("B", model.DeviceMobile, cat("best-practices", 0.2)),
		result("C", model.DeviceDesktop, cat("Best Practices", 0.4)),
	})
	if got := sum.AverageScores.Keys(); !reflect.DeepEqual(got, []string{"best-practices"}) {
		t.Fatalf("average keys = %v, want [best-practices]", got)
	}
	if got := mustGet(t, sum.AverageScores, "best-practices"); got != 0.5 {
		t.Fatalf("average = %v, want 0.5", got)
	}
	if got := mustGet(t, sum.MinScores, "best-practices"); got != 0.2 {
		t.Fatalf("min = %v, want 0.2", got)
	}
	mobile, _ := sum.ScoresByDevice.Get("mobile")
	if got := mobile.Keys(); !reflect.DeepEqual(got, []string{"best-practices"}) {
		t.Fatalf("mobile keys = %v", got)
	}
}
