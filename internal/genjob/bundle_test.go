package genjob

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestBundleURLEndsInJobID(t *testing.T) {
	id := uuid.New()
	url := bundleURL(id)
	if !strings.HasSuffix(url, id.String()) {
		t.Fatalf("expected bundle URL to end in the job id, got %q", url)
	}
}

func TestBundlePathsReflectSuccessfulStagesOnly(t *testing.T) {
	id := uuid.New()
	job := Job{
		ID: id,
		Result: &Result{
			Analysis: &Analysis{Category: "beverage"},
			Packages: []PackageDesign{
				{VariationIndex: 0, Style: "minimalist"},
				{VariationIndex: 1, Style: "vibrant"},
			},
			Ads: []AdImage{{Platform: "twitter-card"}},
			// Texts stage failed: no texts.json entry expected.
		},
	}

	paths := BundlePaths(job)
	want := []string{
		"/" + id.String() + "/analysis.json",
		"/" + id.String() + "/packages/minimalist.png",
		"/" + id.String() + "/packages/vibrant.png",
		"/" + id.String() + "/ads/twitter-card.png",
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %d: %v", len(want), len(paths), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("path %d: expected %q, got %q", i, want[i], paths[i])
		}
	}
}

func TestBundlePathsEmptyWithoutResult(t *testing.T) {
	if paths := BundlePaths(Job{ID: uuid.New()}); len(paths) != 0 {
		t.Fatalf("expected no paths for a job with no result, got %v", paths)
	}
}
