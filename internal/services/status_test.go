package services_test

import (
	"testing"

	"github.com/Lllllllleong/mediaflow/internal/models"
	"github.com/Lllllllleong/mediaflow/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestMergeStatus(t *testing.T) {
	t.Parallel()

	thumb := map[string]string{"thumb": "https://signed/thumb"}

	tests := []struct {
		name      string
		evidence  services.Evidence
		want      models.Status
		wantFound bool
	}{
		{
			name:      "derived object wins over queued record",
			evidence:  services.Evidence{Record: services.RecordFound, Stored: models.StatusQueued, Derived: thumb},
			want:      models.StatusDone,
			wantFound: true,
		},
		{
			name:      "derived object wins over error record",
			evidence:  services.Evidence{Record: services.RecordFound, Stored: models.StatusError, Derived: thumb},
			want:      models.StatusDone,
			wantFound: true,
		},
		{
			name:      "derived object without any record",
			evidence:  services.Evidence{Record: services.RecordMissing, Derived: thumb},
			want:      models.StatusDone,
			wantFound: true,
		},
		{
			name:      "stored status used when nothing derived",
			evidence:  services.Evidence{Record: services.RecordFound, Stored: models.StatusProcessing},
			want:      models.StatusProcessing,
			wantFound: true,
		},
		{
			name:      "stored error surfaces",
			evidence:  services.Evidence{Record: services.RecordFound, Stored: models.StatusError},
			want:      models.StatusError,
			wantFound: true,
		},
		{
			name:      "stored done without derived objects is not trusted",
			evidence:  services.Evidence{Record: services.RecordFound, Stored: models.StatusDone},
			want:      models.StatusProcessing,
			wantFound: true,
		},
		{
			name:      "unknown stored status falls back to queued",
			evidence:  services.Evidence{Record: services.RecordFound, Stored: "VALIDATING"},
			want:      models.StatusQueued,
			wantFound: true,
		},
		{
			name:      "unreadable record with nothing derived is not found",
			evidence:  services.Evidence{Record: services.RecordUnavailable},
			wantFound: false,
		},
		{
			name:      "unreadable record with a derived object is done",
			evidence:  services.Evidence{Record: services.RecordUnavailable, Derived: thumb},
			want:      models.StatusDone,
			wantFound: true,
		},
		{
			name:      "probe failure keeps the stored status",
			evidence:  services.Evidence{Record: services.RecordFound, Stored: models.StatusQueued, ProbeFailed: true},
			want:      models.StatusQueued,
			wantFound: true,
		},
		{
			name:      "nothing anywhere",
			evidence:  services.Evidence{Record: services.RecordMissing},
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := services.MergeStatus(tt.evidence)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
