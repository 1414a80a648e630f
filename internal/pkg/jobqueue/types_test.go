package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportJobPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	in := ExportJobPayload{
		JobUUID:      "8b4f8f4e-0000-0000-0000-000000000000",
		ManifestPath: "/tmp/exports/x/manifest.json",
		WorkDir:      "/tmp/exports/x",
	}

	out, err := ExportJobPayloadFromMap(in.ToMap())
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestArchiveDeliveryJobPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	in := ArchiveDeliveryJobPayload{
		JobUUID:     "8b4f8f4e-0000-0000-0000-000000000000",
		ArchivePath: "/data/exports/x/etsy_export.zip",
		ArchiveName: "etsy_export.zip",
	}

	out, err := ArchiveDeliveryJobPayloadFromMap(in.ToMap())
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestJobRetryLifecycle(t *testing.T) {
	t.Parallel()

	job := &Job{Status: JobStatusPending, MaxRetries: 2}
	assert.True(t, job.IsRetryable())

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsFailed("boom again")
	assert.Equal(t, 2, job.RetryCount)
	assert.False(t, job.IsRetryable())

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
}
