package diagdb

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/diagnose"
	"github.com/LGDiMaggio/claude-stwinbox-diagnostics/internal/vibration/severity"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "diag.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleDiagnosis(zone severity.Zone, findings int) diagnose.Diagnosis {
	d := diagnose.Diagnosis{
		Severity: severity.Assessment{MachineGroup: 2, RMSVelocity: 3.2, Zone: zone},
		Context:  diagnose.ContextFlags{Mode: diagnose.ModeFull, RPMProvided: true},
	}
	for i := 0; i < findings; i++ {
		d.Findings = append(d.Findings, vibration.Finding{
			Kind:       vibration.FaultUnbalance,
			Confidence: vibration.ConfidenceHigh,
			Stage:      vibration.StageShaft,
		})
	}
	return d
}

func TestRecordAndHistory(t *testing.T) {
	db := testDB(t)

	id, err := db.RecordDiagnosis("sig-1", "pump-3", sampleDiagnosis(severity.ZoneC, 1))
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	_, err = db.RecordDiagnosis("sig-2", "pump-3", sampleDiagnosis(severity.ZoneD, 2))
	require.NoError(t, err)
	_, err = db.RecordDiagnosis("sig-3", "fan-1", sampleDiagnosis(severity.ZoneA, 0))
	require.NoError(t, err)

	t.Run("per machine, newest first", func(t *testing.T) {
		records, err := db.History("pump-3", 10)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "sig-2", records[0].SignalID)
		assert.Equal(t, "D", records[0].Zone)
		assert.Equal(t, 2, records[0].FindingCount)
		assert.Equal(t, "sig-1", records[1].SignalID)
	})

	t.Run("round trips the full result", func(t *testing.T) {
		records, err := db.History("pump-3", 1)
		require.NoError(t, err)
		require.Len(t, records, 1)
		if diff := cmp.Diff(sampleDiagnosis(severity.ZoneD, 2), records[0].Result); diff != "" {
			t.Errorf("stored diagnosis differs (-want +got):\n%s", diff)
		}
	})

	t.Run("all machines", func(t *testing.T) {
		records, err := db.History("", 10)
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("limit", func(t *testing.T) {
		records, err := db.History("", 2)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("unknown machine", func(t *testing.T) {
		records, err := db.History("absent", 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestZoneTrend(t *testing.T) {
	db := testDB(t)
	for _, zone := range []severity.Zone{severity.ZoneA, severity.ZoneB, severity.ZoneC} {
		_, err := db.RecordDiagnosis("", "pump-3", sampleDiagnosis(zone, 0))
		require.NoError(t, err)
	}

	zones, err := db.ZoneTrend("pump-3", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, zones, "trend is oldest first")
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diag.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	_, err = db.RecordDiagnosis("sig-1", "pump-3", sampleDiagnosis(severity.ZoneB, 0))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := NewDB(path)
	require.NoError(t, err)
	defer reopened.Close()
	records, err := reopened.History("pump-3", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
