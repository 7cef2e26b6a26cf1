package main

import (
	"errors"
	"testing"

	"armback/internal/backup"
)

func TestSyncOutcome(t *testing.T) {
	t.Parallel()

	cycleErr := errors.New("upload refused")

	tests := []struct {
		name    string
		res     *backup.CycleResult
		err     error
		wantMsg string
		wantErr error
	}{
		{
			name:    "cycle in flight is a quiet no-op",
			err:     backup.ErrCycleInFlight,
			wantMsg: "Backup cycle already running.",
		},
		{
			name:    "not due",
			res:     &backup.CycleResult{Ran: false, State: backup.StateIdle},
			wantMsg: "Backup not due.",
		},
		{
			name: "completed cycle reports the archive",
			res: &backup.CycleResult{
				Ran:         true,
				State:       backup.StateDone,
				ArchiveName: "equipment_backup_20240115_103000.zip",
				UploadedID:  "file-1",
			},
			wantMsg: "Uploaded equipment_backup_20240115_103000.zip (file id file-1)",
		},
		{
			name:    "failed cycle surfaces the cause",
			res:     &backup.CycleResult{Ran: true, State: backup.StateFailed, Err: cycleErr},
			wantErr: cycleErr,
		},
		{
			name:    "settings error passes through",
			err:     cycleErr,
			wantErr: cycleErr,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, err := syncOutcome(tt.res, tt.err)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("syncOutcome() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("syncOutcome() error = %v", err)
			}
			if msg != tt.wantMsg {
				t.Errorf("syncOutcome() = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}
