package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docugen/docugen/pkg/render"
)

func testSettings() Settings {
	return Settings{
		TemplateID:   "default",
		OutputFormat: OutputIndividualFiles,
		Concurrency:  2,
	}
}

func testSpecs(n int) []ItemSpec {
	specs := make([]ItemSpec, 0, n)
	for i := 0; i < n; i++ {
		specs = append(specs, ItemSpec{
			DocumentType:   DocInvoice,
			DocumentNumber: documentNumber(i),
			Amount:         float64(100 + i),
			Currency:       "EUR",
		})
	}
	return specs
}

func documentNumber(i int) string {
	return "INV-" + string(rune('A'+i%26)) + string(rune('0'+i%10))
}

func okRenderer() render.Renderer {
	return render.Func(func(ctx context.Context, req render.Request) (render.ArtifactRef, error) {
		return render.ArtifactRef{Location: "jobs/" + req.JobID + "/" + req.DocumentNumber + ".pdf"}, nil
	})
}

func TestNewJob_Validation(t *testing.T) {
	t.Run("empty item list rejected", func(t *testing.T) {
		_, err := NewJob("empty", nil, testSettings())
		require.Error(t, err)
		require.ErrorIs(t, err, ErrValidation)
		require.Contains(t, err.Error(), "at least one item")
	})

	t.Run("invalid settings rejected", func(t *testing.T) {
		settings := testSettings()
		settings.Concurrency = 0
		_, err := NewJob("bad settings", testSpecs(1), settings)
		require.ErrorIs(t, err, ErrValidation)

		settings = testSettings()
		settings.OutputFormat = "zip_bomb"
		_, err = NewJob("bad format", testSpecs(1), settings)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown document type rejected", func(t *testing.T) {
		specs := testSpecs(1)
		specs[0].DocumentType = "poster"
		_, err := NewJob("bad type", specs, testSettings())
		require.ErrorIs(t, err, ErrValidation)
		require.Contains(t, err.Error(), "poster")
	})

	t.Run("duplicate item ids rejected", func(t *testing.T) {
		specs := testSpecs(2)
		specs[0].ID = "dup"
		specs[1].ID = "dup"
		_, err := NewJob("dup ids", specs, testSettings())
		require.ErrorIs(t, err, ErrValidation)
		require.Contains(t, err.Error(), "duplicate item id")
	})

	t.Run("missing item ids are assigned", func(t *testing.T) {
		job, err := NewJob("assigned", testSpecs(3), testSettings())
		require.NoError(t, err)

		seen := map[string]bool{}
		for _, snap := range job.Items() {
			require.NotEmpty(t, snap.ID)
			require.False(t, seen[snap.ID])
			seen[snap.ID] = true
			require.Equal(t, ItemPending, snap.State)
		}
	})

	t.Run("new job is pending with no timestamps", func(t *testing.T) {
		job, err := NewJob("fresh", testSpecs(1), testSettings())
		require.NoError(t, err)
		require.Equal(t, JobPending, job.State())
		require.True(t, job.StartedAt().IsZero())
		require.True(t, job.CompletedAt().IsZero())
		require.False(t, job.CreatedAt().IsZero())
	})
}

func TestJob_ControlTransitions(t *testing.T) {
	t.Run("pause requires running", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(1), testSettings())
		err := job.pause()
		require.ErrorIs(t, err, ErrInvalidState)

		var ise *InvalidStateError
		require.ErrorAs(t, err, &ise)
		require.Equal(t, "pause", ise.Op)
		require.Equal(t, JobPending, ise.State)
	})

	t.Run("resume requires paused", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(1), testSettings())
		require.NoError(t, job.begin())
		require.ErrorIs(t, job.resume(), ErrInvalidState)

		require.NoError(t, job.pause())
		require.NoError(t, job.resume())
		require.Equal(t, JobRunning, job.State())
	})

	t.Run("double start rejected", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(1), testSettings())
		require.NoError(t, job.begin())
		require.ErrorIs(t, job.begin(), ErrInvalidState)
	})

	t.Run("cancel requires running or paused", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(1), testSettings())
		require.ErrorIs(t, job.requestCancel(), ErrInvalidState)

		require.NoError(t, job.begin())
		require.NoError(t, job.pause())
		require.NoError(t, job.requestCancel())
		require.True(t, job.cancelled())
	})

	t.Run("cancel skips pending items immediately", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(4), testSettings())
		require.NoError(t, job.begin())

		claimed := job.claimNext()
		require.NotNil(t, claimed)

		require.NoError(t, job.requestCancel())
		for _, snap := range job.Items() {
			if snap.ID == claimed.id {
				require.Equal(t, ItemGenerating, snap.State)
			} else {
				require.Equal(t, ItemSkipped, snap.State)
			}
		}
	})
}

func TestJob_ClaimNext(t *testing.T) {
	t.Run("high priority first, insertion order tie-break", func(t *testing.T) {
		specs := []ItemSpec{
			{ID: "low", DocumentType: DocInvoice, Priority: PriorityLow},
			{ID: "normal-1", DocumentType: DocInvoice, Priority: PriorityNormal},
			{ID: "high", DocumentType: DocInvoice, Priority: PriorityHigh},
			{ID: "normal-2", DocumentType: DocInvoice, Priority: PriorityNormal},
		}
		job, err := NewJob("prio", specs, testSettings())
		require.NoError(t, err)
		require.NoError(t, job.begin())

		var order []string
		for {
			it := job.claimNext()
			if it == nil {
				break
			}
			order = append(order, it.id)
		}
		require.Equal(t, []string{"high", "normal-1", "normal-2", "low"}, order)
	})

	t.Run("claim refused unless running", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(2), testSettings())
		require.Nil(t, job.claimNext())

		require.NoError(t, job.begin())
		require.NotNil(t, job.claimNext())

		require.NoError(t, job.pause())
		require.Nil(t, job.claimNext())
	})
}

func TestJob_Resolve(t *testing.T) {
	t.Run("success stores artifact", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(1), testSettings())
		require.NoError(t, job.begin())
		it := job.claimNext()

		artifact := render.ArtifactRef{Location: "jobs/x/INV-1.pdf", Size: 120}
		require.NoError(t, job.resolve(it, artifact, nil))

		snap := job.Items()[0]
		require.Equal(t, ItemCompleted, snap.State)
		require.NotNil(t, snap.Artifact)
		require.Equal(t, "jobs/x/INV-1.pdf", snap.Artifact.Location)
		require.Nil(t, snap.Error)
		require.GreaterOrEqual(t, snap.Duration, time.Duration(0))
	})

	t.Run("failure stores classified error", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(1), testSettings())
		require.NoError(t, job.begin())
		it := job.claimNext()

		renderErr := render.NewError(render.KindTemplate, "template not found")
		require.NoError(t, job.resolve(it, render.ArtifactRef{}, renderErr))

		snap := job.Items()[0]
		require.Equal(t, ItemFailed, snap.State)
		require.Nil(t, snap.Artifact)
		require.NotNil(t, snap.Error)
		require.Equal(t, render.KindTemplate, snap.Error.Kind)
	})

	t.Run("unclassified failure becomes internal", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(1), testSettings())
		require.NoError(t, job.begin())
		it := job.claimNext()

		require.NoError(t, job.resolve(it, render.ArtifactRef{}, errors.New("boom")))
		require.Equal(t, render.KindInternal, job.Items()[0].Error.Kind)
	})

	t.Run("result after cancel is discarded as skipped", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(2), testSettings())
		require.NoError(t, job.begin())
		it := job.claimNext()
		require.NoError(t, job.requestCancel())

		require.NoError(t, job.resolve(it, render.ArtifactRef{Location: "late.pdf"}, nil))

		for _, snap := range job.Items() {
			require.Equal(t, ItemSkipped, snap.State)
			require.Nil(t, snap.Artifact)
			require.Nil(t, snap.Error)
		}
	})

	t.Run("resolving a non-generating item is a fault", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(1), testSettings())
		require.NoError(t, job.begin())
		it := job.claimNext()
		require.NoError(t, job.resolve(it, render.ArtifactRef{Location: "a.pdf"}, nil))

		err := job.resolve(it, render.ArtifactRef{}, nil)
		require.ErrorIs(t, err, ErrEngineFault)
	})
}

func TestJob_Finalize(t *testing.T) {
	resolveAll := func(t *testing.T, job *Job, failEvery int) {
		t.Helper()
		i := 0
		for {
			it := job.claimNext()
			if it == nil {
				break
			}
			var err error
			if failEvery > 0 && i%failEvery == 0 {
				err = render.NewError(render.KindIO, "disk full")
			}
			require.NoError(t, job.resolve(it, render.ArtifactRef{Location: it.id + ".pdf"}, err))
			i++
		}
	}

	t.Run("all completed means completed", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(3), testSettings())
		require.NoError(t, job.begin())
		resolveAll(t, job, 0)

		require.NoError(t, job.finalize())
		require.Equal(t, JobCompleted, job.State())
		require.False(t, job.CompletedAt().IsZero())
	})

	t.Run("any failure means failed", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(3), testSettings())
		require.NoError(t, job.begin())
		resolveAll(t, job, 2)

		require.NoError(t, job.finalize())
		require.Equal(t, JobFailed, job.State())
	})

	t.Run("cancel wins over outcomes", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(3), testSettings())
		require.NoError(t, job.begin())
		it := job.claimNext()
		require.NoError(t, job.resolve(it, render.ArtifactRef{Location: "a.pdf"}, nil))
		require.NoError(t, job.requestCancel())

		require.NoError(t, job.finalize())
		require.Equal(t, JobCancelled, job.State())
	})

	t.Run("non-terminal item is a fault", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(2), testSettings())
		require.NoError(t, job.begin())
		_ = job.claimNext() // left in Generating

		require.ErrorIs(t, job.finalize(), ErrEngineFault)
	})

	t.Run("finalize is idempotent once terminal", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(1), testSettings())
		require.NoError(t, job.begin())
		resolveAll(t, job, 0)
		require.NoError(t, job.finalize())
		completedAt := job.CompletedAt()

		require.NoError(t, job.finalize())
		require.Equal(t, completedAt, job.CompletedAt())
	})
}

func TestJob_Verify(t *testing.T) {
	t.Run("clean terminal job passes", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(2), testSettings())
		require.NoError(t, job.begin())
		for {
			it := job.claimNext()
			if it == nil {
				break
			}
			require.NoError(t, job.resolve(it, render.ArtifactRef{Location: it.id + ".pdf"}, nil))
		}
		require.NoError(t, job.finalize())
		require.NoError(t, job.Verify())
	})

	t.Run("completed without artifact is a fault", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(1), testSettings())
		job.items[0].state = ItemCompleted

		require.ErrorIs(t, job.Verify(), ErrEngineFault)
	})

	t.Run("failed without error is a fault", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(1), testSettings())
		job.items[0].state = ItemFailed

		require.ErrorIs(t, job.Verify(), ErrEngineFault)
	})

	t.Run("skipped with metadata is a fault", func(t *testing.T) {
		job, _ := NewJob("j", testSpecs(1), testSettings())
		job.items[0].state = ItemSkipped
		job.items[0].artifact = &render.ArtifactRef{Location: "x"}

		require.ErrorIs(t, job.Verify(), ErrEngineFault)
	})
}

func TestParseHelpers(t *testing.T) {
	t.Run("document types", func(t *testing.T) {
		for _, s := range []string{"invoice", "quote", "receipt", "statement"} {
			dt, err := ParseDocumentType(s)
			require.NoError(t, err)
			require.True(t, dt.IsValid())
		}
		_, err := ParseDocumentType("poster")
		require.Error(t, err)
	})

	t.Run("priorities", func(t *testing.T) {
		p, err := ParsePriority("")
		require.NoError(t, err)
		require.Equal(t, PriorityNormal, p)

		p, err = ParsePriority("high")
		require.NoError(t, err)
		require.Equal(t, PriorityHigh, p)

		_, err = ParsePriority("urgent-ish")
		require.Error(t, err)
	})

	t.Run("job states round trip", func(t *testing.T) {
		for st := JobPending; st <= JobCancelled; st++ {
			parsed, ok := ParseJobState(st.String())
			require.True(t, ok)
			require.Equal(t, st, parsed)
		}
		_, ok := ParseJobState("exploded")
		require.False(t, ok)
	})
}
