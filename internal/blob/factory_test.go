package blob

import (
	"context"
	"testing"
)

func TestOpenSelectsDriverFromEnv(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		t.Setenv("DAPHNIA_BLOB_DRIVER", "memory")
		store, err := Open(ctx)
		if err != nil || store.Driver() != DriverMemory {
			t.Fatalf("Open = %v, %v", store, err)
		}
	})

	t.Run("fs default", func(t *testing.T) {
		t.Setenv("DAPHNIA_BLOB_DRIVER", "")
		t.Setenv("DAPHNIA_BLOB_FS_ROOT", t.TempDir())
		store, err := Open(ctx)
		if err != nil || store.Driver() != DriverFilesystem {
			t.Fatalf("Open = %v, %v", store, err)
		}
	})

	t.Run("s3 requires bucket", func(t *testing.T) {
		t.Setenv("DAPHNIA_BLOB_DRIVER", "s3")
		t.Setenv("DAPHNIA_BLOB_S3_BUCKET", "")
		if _, err := Open(ctx); err == nil {
			t.Fatalf("s3 driver without bucket must fail")
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("DAPHNIA_BLOB_DRIVER", "carrier-pigeon")
		if _, err := Open(ctx); err == nil {
			t.Fatalf("unknown driver must fail")
		}
	})
}
