package quota

import (
	"testing"

	"github.com/google/uuid"

	"github.com/attache-dev/attache/pkg/auth"
)

func limit(n int64) *int64 { return &n }

func principal(maxFile, maxStorage *int64) *auth.Principal {
	return &auth.Principal{
		ApplicationID:    uuid.New(),
		Name:             "test-app",
		MaxFileSizeBytes: maxFile,
		MaxStorageBytes:  maxStorage,
	}
}

func TestAdmit(t *testing.T) {
	tests := []struct {
		name       string
		p          *auth.Principal
		size       int64
		usage      int64
		admitted   bool
		wantReason Reason
	}{
		{
			name:     "no limits admits anything",
			p:        principal(nil, nil),
			size:     1 << 40,
			usage:    1 << 40,
			admitted: true,
		},
		{
			name:     "under both limits",
			p:        principal(limit(1048576), limit(10485760)),
			size:     1000,
			usage:    5000,
			admitted: true,
		},
		{
			name:       "file over per-file limit",
			p:          principal(limit(1048576), nil),
			size:       2000000,
			usage:      0,
			wantReason: FileTooLarge,
		},
		{
			name:       "aggregate would exceed storage limit",
			p:          principal(nil, limit(10000)),
			size:       6000,
			usage:      5000,
			wantReason: StorageLimitExceeded,
		},
		{
			name:     "exactly at per-file limit",
			p:        principal(limit(1000), nil),
			size:     1000,
			usage:    0,
			admitted: true,
		},
		{
			name:     "exactly fills storage limit",
			p:        principal(nil, limit(10000)),
			size:     5000,
			usage:    5000,
			admitted: true,
		},
		{
			name:       "oversized file reported as FileTooLarge even when storage is also full",
			p:          principal(limit(100), limit(100)),
			size:       200,
			usage:      100,
			wantReason: FileTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Admit(tt.p, tt.size, tt.usage)
			if d.Admitted != tt.admitted {
				t.Fatalf("Admitted = %v, want %v", d.Admitted, tt.admitted)
			}
			if !tt.admitted && d.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tt.wantReason)
			}
			if tt.admitted && d.Reason != "" {
				t.Errorf("admitted decision carries reason %q", d.Reason)
			}
		})
	}
}

// Growing usage can flip admit to reject but never reject to admit.
func TestAdmitMonotonicInUsage(t *testing.T) {
	p := principal(limit(1<<20), limit(1<<24))
	const size = 1 << 18

	prevAdmitted := true
	for usage := int64(0); usage <= 1<<24; usage += 1 << 20 {
		d := Admit(p, size, usage)
		if d.Admitted && !prevAdmitted {
			t.Fatalf("decision flipped reject->admit at usage %d", usage)
		}
		prevAdmitted = d.Admitted
	}
	if prevAdmitted {
		t.Fatal("expected final decision at full usage to be a reject")
	}
}
