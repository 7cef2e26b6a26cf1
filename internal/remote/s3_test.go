package remote

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestS3Remote_ResolveFolder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name     string
		prefix   string
		segments []string
		want     string
	}{
		{
			name:     "prefix joins ahead of the folder chain",
			prefix:   "tenant/alpha",
			segments: []string{"EquipmentTracker", "Backups"},
			want:     "tenant/alpha/EquipmentTracker/Backups",
		},
		{
			name:     "no prefix",
			segments: []string{"EquipmentTracker", "Backups"},
			want:     "EquipmentTracker/Backups",
		},
		{
			name:   "prefix alone when there are no segments",
			prefix: "tenant/alpha",
			want:   "tenant/alpha",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &S3Remote{prefix: tt.prefix}

			got, err := r.ResolveFolder(ctx, nil, tt.segments)
			if err != nil {
				t.Fatalf("ResolveFolder() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveFolder() = %q, want %q", got, tt.want)
			}

			// Nothing is created, so resolving again yields the same id.
			again, err := r.ResolveFolder(ctx, nil, tt.segments)
			if err != nil {
				t.Fatalf("second ResolveFolder() error = %v", err)
			}
			if again != got {
				t.Errorf("ids differ across resolutions: %q vs %q", got, again)
			}
		})
	}
}

func TestFilesFromObjects(t *testing.T) {
	t.Parallel()
	created := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	objects := []types.Object{
		{
			Key:          aws.String("EquipmentTracker/Backups/"),
			LastModified: aws.Time(created),
			Size:         aws.Int64(0),
		},
		{
			Key:          aws.String("EquipmentTracker/Backups/equipment_backup_20240115_103000.zip"),
			LastModified: aws.Time(created),
			Size:         aws.Int64(42),
		},
	}

	files := filesFromObjects(objects)
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1 (directory placeholder skipped)", len(files))
	}
	got := files[0]
	if got.ID != "EquipmentTracker/Backups/equipment_backup_20240115_103000.zip" {
		t.Errorf("id = %q", got.ID)
	}
	if got.Name != "equipment_backup_20240115_103000.zip" {
		t.Errorf("name = %q, want the key's base name", got.Name)
	}
	if !got.CreatedTime.Equal(created) {
		t.Errorf("createdTime = %v, want %v", got.CreatedTime, created)
	}
	if got.Size != 42 {
		t.Errorf("size = %d, want 42", got.Size)
	}
}

func TestSortNewestFirst(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	files := filesFromObjects([]types.Object{
		{Key: aws.String("b/old.zip"), LastModified: aws.Time(base), Size: aws.Int64(1)},
		{Key: aws.String("b/newest.zip"), LastModified: aws.Time(base.Add(2 * time.Hour)), Size: aws.Int64(1)},
		{Key: aws.String("b/middle.zip"), LastModified: aws.Time(base.Add(time.Hour)), Size: aws.Int64(1)},
	})

	sortNewestFirst(files)

	want := []string{"newest.zip", "middle.zip", "old.zip"}
	for i, name := range want {
		if files[i].Name != name {
			t.Errorf("files[%d].Name = %q, want %q", i, files[i].Name, name)
		}
	}
}
