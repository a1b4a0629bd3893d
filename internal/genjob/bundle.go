package genjob

import (
	"fmt"

	"github.com/google/uuid"
)

// bundleURL computes the stable download locator for a completed job's
// output bundle. No bytes are written to any backing store here: whatever
// static file server or object store fronts the process resolves the path,
// keyed only by job ID.
func bundleURL(jobID uuid.UUID) string {
	return fmt.Sprintf("/bundles/%s", jobID.String())
}

// BundlePaths lists the relative paths making up a job's download bundle:
// the analysis record, one image per successful package variation and ad
// platform, and the assembled text bundle. A transport serves this tree
// directly or packs it into a single archive; stages that failed or were
// skipped contribute no entries.
func BundlePaths(job Job) []string {
	if job.Result == nil {
		return nil
	}
	base := "/" + job.ID.String()
	var out []string
	if job.Result.Analysis != nil {
		out = append(out, base+"/analysis.json")
	}
	for _, p := range job.Result.Packages {
		out = append(out, fmt.Sprintf("%s/packages/%s.png", base, p.Style))
	}
	for _, a := range job.Result.Ads {
		out = append(out, fmt.Sprintf("%s/ads/%s.png", base, a.Platform))
	}
	if job.Result.Texts != nil {
		out = append(out, base+"/texts.json")
	}
	return out
}
