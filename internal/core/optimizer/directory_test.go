package optimizer

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Ning0612/drivesync/internal/domain"
	tu "github.com/Ning0612/drivesync/internal/testutil"
)

func TestOptimizeDirectories_RenameScenario(t *testing.T) {
	plan := domain.DirectoryPlan{
		ForServer: []dirAction{
			tu.Remove(tu.Dir("/old", "h1"), deleted, none),
			tu.Sync(tu.Dir("/new", "h1"), created, none),
		},
		ForClient: []dirAction{
			tu.AckRemoved(tu.Dir("/old", "h1"), deleted, none),
			tu.Sync(tu.Dir("/new", "h1"), created, none),
		},
	}

	got := OptimizeDirectories(context.Background(), NewSession(nil), plan)

	assertActions(t, "server", got.ForServer, []string{"edit(/old|h1 -> /new|h1)"})
	assertActions(t, "client", got.ForClient, []string{
		"acknowledge(/old|h1 -> null)",
		"sync(/new|h1 -> /new|h1)",
	})

	if got.ForServer[0].ID != plan.ForServer[0].ID {
		t.Error("Expected edit to keep the remove's ID")
	}
	if len(plan.ForServer) != 2 || plan.ForServer[0].Kind != domain.ActionRemove {
		t.Error("Expected input plan to be left untouched")
	}
}

func TestRemoveRedundantRemoves_Closure(t *testing.T) {
	// modified on the client, deleted on the server
	conflict := domain.NewAction(domain.ActionRemove, domain.Ptr(tu.Dir("/a/z", "h9")), nil, &domain.Comparison[domain.DirectoryVersion]{
		Original: domain.Ptr(tu.Dir("/a/z", "h0")),
		Client:   domain.Ptr(tu.Dir("/a/z", "h9")),
	})
	plan := domain.DirectoryPlan{
		ForServer: []dirAction{
			tu.Remove(tu.Dir("/a/b", "h2"), deleted, none),
			tu.Remove(tu.Dir("/a", "h1"), deleted, none),
			conflict,
			tu.Remove(tu.Dir("/a/b/c", "h3"), deleted, deleted),
			tu.Remove(tu.Dir("/ab", "h4"), deleted, none),
		},
		ForClient: []dirAction{
			tu.Remove(tu.Dir("/x/y", "h5"), none, deleted),
			tu.Remove(tu.Dir("/x", "h6"), none, deleted),
		},
	}

	got := RemoveRedundantRemoves(context.Background(), NewSession(nil), plan)

	assertActions(t, "server", got.ForServer, []string{
		"remove(/a|h1 -> null)",
		"remove(/a/z|h9 -> null)",
		"remove(/ab|h4 -> null)",
	})
	assertActions(t, "server nested", got.ForServer[0].Params.NestedRemoves, []string{
		"remove(/a/b|h2 -> null)",
		"remove(/a/b/c|h3 -> null)",
	})
	for _, n := range got.ForServer[0].Params.NestedRemoves {
		if len(n.Params.NestedRemoves) != 0 {
			t.Errorf("Expected nested remove %s to be flattened", n)
		}
	}
	if len(got.ForServer[2].Params.NestedRemoves) != 0 {
		t.Error("Expected /ab not to absorb anything (prefix is not a parent)")
	}

	assertActions(t, "client", got.ForClient, []string{"remove(/x|h6 -> null)"})
	assertActions(t, "client nested", got.ForClient[0].Params.NestedRemoves, []string{"remove(/x/y|h5 -> null)"})

	if len(plan.ForServer[1].Params.NestedRemoves) != 0 {
		t.Error("Expected input actions not to be mutated")
	}
}

func TestOptimizeDirectories_NestedRemoveRestoration(t *testing.T) {
	plan := domain.DirectoryPlan{
		ForServer: []dirAction{
			tu.Remove(tu.Dir("/a", "h1"), deleted, none),
			tu.Remove(tu.Dir("/a/b", "h2"), deleted, none),
			tu.Remove(tu.Dir("/a/b/c", "h3"), deleted, none),
			tu.Sync(tu.Dir("/z", "h1"), created, none),
		},
		ForClient: []dirAction{
			tu.AckRemoved(tu.Dir("/a", "h1"), deleted, none),
			tu.AckRemoved(tu.Dir("/a/b", "h2"), deleted, none),
			tu.AckRemoved(tu.Dir("/a/b/c", "h3"), deleted, none),
			tu.Sync(tu.Dir("/z", "h1"), created, none),
		},
	}

	got := OptimizeDirectories(context.Background(), NewSession(nil), plan)

	assertActions(t, "server", got.ForServer, []string{
		"edit(/a|h1 -> /z|h1)",
		"remove(/z/b/c|h3 -> null)",
		"remove(/z/b|h2 -> null)",
	})
	assertActions(t, "client", got.ForClient, []string{
		"acknowledge(/a|h1 -> null)",
		"acknowledge(/a/b|h2 -> null)",
		"acknowledge(/a/b/c|h3 -> null)",
		"sync(/z|h1 -> /z|h1)",
	})
}

func TestDetectDirectoryRenames_NestedRenamesCollapse(t *testing.T) {
	plan := domain.DirectoryPlan{
		ForServer: []dirAction{
			tu.Remove(tu.Dir("/a", "h1"), deleted, none),
			tu.Remove(tu.Dir("/a/b", "h2"), deleted, none),
			tu.Sync(tu.Dir("/z", "h1"), created, none),
			tu.Sync(tu.Dir("/z/b", "h2"), created, none),
		},
		ForClient: []dirAction{
			tu.AckRemoved(tu.Dir("/a", "h1"), deleted, none),
			tu.AckRemoved(tu.Dir("/a/b", "h2"), deleted, none),
			tu.Sync(tu.Dir("/z", "h1"), created, none),
			tu.Sync(tu.Dir("/z/b", "h2"), created, none),
		},
	}

	got := DetectDirectoryRenames(context.Background(), NewSession(nil), plan)

	assertActions(t, "server", got.ForServer, []string{"edit(/a|h1 -> /z|h1)"})
	assertActions(t, "client", got.ForClient, []string{
		"acknowledge(/a|h1 -> null)",
		"acknowledge(/a/b|h2 -> null)",
		"sync(/z|h1 -> /z|h1)",
		"sync(/z/b|h2 -> /z/b|h2)",
	})
}

func TestDetectDirectoryRenames_Idempotent(t *testing.T) {
	plans := map[string]domain.DirectoryPlan{
		"nested": {
			ForServer: []dirAction{
				tu.Remove(tu.Dir("/a", "h1"), deleted, none),
				tu.Remove(tu.Dir("/a/b", "h2"), deleted, none),
				tu.Sync(tu.Dir("/z", "h1"), created, none),
				tu.Sync(tu.Dir("/z/b", "h2"), created, none),
			},
			ForClient: []dirAction{
				tu.AckRemoved(tu.Dir("/a", "h1"), deleted, none),
				tu.AckRemoved(tu.Dir("/a/b", "h2"), deleted, none),
				tu.Sync(tu.Dir("/z", "h1"), created, none),
				tu.Sync(tu.Dir("/z/b", "h2"), created, none),
			},
		},
		"restored": RemoveRedundantRemoves(context.Background(), NewSession(nil), domain.DirectoryPlan{
			ForServer: []dirAction{
				tu.Remove(tu.Dir("/a", "h1"), deleted, none),
				tu.Remove(tu.Dir("/a/b", "h2"), deleted, none),
				tu.Sync(tu.Dir("/z", "h1"), created, none),
			},
			ForClient: []dirAction{
				tu.AckRemoved(tu.Dir("/a", "h1"), deleted, none),
				tu.AckRemoved(tu.Dir("/a/b", "h2"), deleted, none),
				tu.Sync(tu.Dir("/z", "h1"), created, none),
			},
		}),
		"server side": {
			ForServer: []dirAction{
				tu.AckRemoved(tu.Dir("/old", "h1"), none, deleted),
				tu.Sync(tu.Dir("/new", "h1"), none, created),
			},
			ForClient: []dirAction{
				tu.Remove(tu.Dir("/old", "h1"), none, deleted),
				tu.Sync(tu.Dir("/new", "h1"), none, created),
			},
		},
	}

	for name, plan := range plans {
		s := NewSession(nil)
		once := DetectDirectoryRenames(context.Background(), s, plan)
		twice := DetectDirectoryRenames(context.Background(), s, once)

		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("%s: second run changed the plan (-once +twice):\n%s", name, diff)
		}
	}
}

func TestDetectDirectoryRenames_ServerRename(t *testing.T) {
	plan := domain.DirectoryPlan{
		ForServer: []dirAction{
			tu.AckRemoved(tu.Dir("/old", "h1"), none, deleted),
			tu.Sync(tu.Dir("/new", "h1"), none, created),
		},
		ForClient: []dirAction{
			tu.Remove(tu.Dir("/old", "h1"), none, deleted),
			tu.Sync(tu.Dir("/new", "h1"), none, created),
		},
	}

	got := DetectDirectoryRenames(context.Background(), NewSession(nil), plan)

	assertActions(t, "client", got.ForClient, []string{"edit(/old|h1 -> /new|h1)"})
	assertActions(t, "server", got.ForServer, []string{
		"acknowledge(/old|h1 -> null)",
		"sync(/new|h1 -> /new|h1)",
	})
}

func TestDetectDirectoryRenames_RequiresBothSides(t *testing.T) {
	tests := []struct {
		name   string
		client []dirAction
	}{
		{"no acknowledge", []dirAction{tu.Sync(tu.Dir("/new", "h1"), created, none)}},
		{"no client sync", []dirAction{tu.AckRemoved(tu.Dir("/old", "h1"), deleted, none)}},
		{"acknowledge of other checksum", []dirAction{
			tu.AckRemoved(tu.Dir("/old", "h2"), deleted, none),
			tu.Sync(tu.Dir("/new", "h1"), created, none),
		}},
	}

	for _, tt := range tests {
		plan := domain.DirectoryPlan{
			ForServer: []dirAction{
				tu.Remove(tu.Dir("/old", "h1"), deleted, none),
				tu.Sync(tu.Dir("/new", "h1"), created, none),
			},
			ForClient: tt.client,
		}
		got := DetectDirectoryRenames(context.Background(), NewSession(nil), plan)
		if diff := cmp.Diff(plan, got); diff != "" {
			t.Errorf("%s: expected plan unchanged (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestDetectDirectoryRenames_TieBreakIsFirstSeen(t *testing.T) {
	build := func() domain.DirectoryPlan {
		return domain.DirectoryPlan{
			ForServer: []dirAction{
				tu.Remove(tu.Dir("/p/x", "h1"), deleted, none),
				tu.Sync(tu.Dir("/q/x", "h1"), created, none),
				tu.Sync(tu.Dir("/r/x", "h1"), created, none),
			},
			ForClient: []dirAction{
				tu.AckRemoved(tu.Dir("/p/x", "h1"), deleted, none),
				tu.Sync(tu.Dir("/q/x", "h1"), created, none),
				tu.Sync(tu.Dir("/r/x", "h1"), created, none),
			},
		}
	}

	for i := 0; i < 5; i++ {
		got := DetectDirectoryRenames(context.Background(), NewSession(nil), build())
		assertActions(t, "server", got.ForServer, []string{
			"edit(/p/x|h1 -> /q/x|h1)",
			"sync(null -> /r/x|h1)",
		})
	}
}

func TestDetectDirectoryRenames_PrefersSimilarPath(t *testing.T) {
	plan := domain.DirectoryPlan{
		ForServer: []dirAction{
			tu.Remove(tu.Dir("/docs/2024/old", "h1"), deleted, none),
			tu.Sync(tu.Dir("/misc/new", "h1"), created, none),
			tu.Sync(tu.Dir("/docs/2024/new", "h1"), created, none),
		},
		ForClient: []dirAction{
			tu.AckRemoved(tu.Dir("/docs/2024/old", "h1"), deleted, none),
			tu.Sync(tu.Dir("/misc/new", "h1"), created, none),
			tu.Sync(tu.Dir("/docs/2024/new", "h1"), created, none),
		},
	}

	got := DetectDirectoryRenames(context.Background(), NewSession(nil), plan)

	if got.ForServer[0].Kind != domain.ActionEdit || got.ForServer[0].NewVersion.Path != "/docs/2024/new" {
		t.Errorf("Expected rename to /docs/2024/new, got %s", got.ForServer[0])
	}
}

func TestDetectDirectoryRenames_PlainChecksumFallback(t *testing.T) {
	build := func() domain.DirectoryPlan {
		return domain.DirectoryPlan{
			ForServer: []dirAction{
				tu.Remove(tu.Dir("/old", "with-meta"), deleted, none),
				tu.Sync(tu.Dir("/new", "plain"), created, none),
			},
			ForClient: []dirAction{
				tu.AckRemoved(tu.Dir("/old", "with-meta"), deleted, none),
				tu.Sync(tu.Dir("/new", "plain"), created, none),
			},
		}
	}

	s := NewSession(nil)
	s.PlainChecksums = map[string]string{"/old": "plain"}

	got := DetectDirectoryRenames(context.Background(), s, build())
	if got.ForServer[0].Kind != domain.ActionRemove {
		t.Errorf("Expected no fallback without meta mode, got %s", got.ForServer[0])
	}

	s.MetaMode = true
	got = DetectDirectoryRenames(context.Background(), s, build())
	assertActions(t, "server", got.ForServer, []string{"edit(/old|with-meta -> /new|plain)"})
}

func TestDetectDirectoryRenames_RoundLimit(t *testing.T) {
	build := func() domain.DirectoryPlan {
		return RemoveRedundantRemoves(context.Background(), NewSession(nil), domain.DirectoryPlan{
			ForServer: []dirAction{
				tu.Remove(tu.Dir("/a", "h1"), deleted, none),
				tu.Remove(tu.Dir("/a/b", "h2"), deleted, none),
				tu.Sync(tu.Dir("/z", "h1"), created, none),
				tu.Sync(tu.Dir("/y", "h2"), created, none),
			},
			ForClient: []dirAction{
				tu.AckRemoved(tu.Dir("/a", "h1"), deleted, none),
				tu.AckRemoved(tu.Dir("/a/b", "h2"), deleted, none),
				tu.Sync(tu.Dir("/z", "h1"), created, none),
				tu.Sync(tu.Dir("/y", "h2"), created, none),
			},
		})
	}

	// the restored /a/b is only renamed in the second round
	s := NewSession(nil)
	got := DetectDirectoryRenames(context.Background(), s, build())
	assertActions(t, "server", got.ForServer, []string{
		"edit(/a|h1 -> /z|h1)",
		"edit(/a/b|h2 -> /y|h2)",
	})

	log := &recordingLogger{}
	s = NewSession(nil)
	s.Logger = log
	s.MaxRenameRounds = 1
	got = DetectDirectoryRenames(context.Background(), s, build())
	assertActions(t, "server (capped)", got.ForServer, []string{
		"edit(/a|h1 -> /z|h1)",
		"sync(null -> /y|h2)",
		"remove(/a/b|h2 -> null)",
	})
	if warns := log.Warnings(); len(warns) != 1 {
		t.Errorf("Expected one convergence warning, got %v", warns)
	}
}

func TestCollapseEmptyDirectories(t *testing.T) {
	s := NewSession(nil)
	empty := s.EmptyChecksum

	plan := domain.DirectoryPlan{
		ForServer: []dirAction{
			tu.Sync(tu.Dir("/new-empty", empty), created, none),
			tu.Sync(tu.Dir("/new-full", "h1"), created, none),
			tu.Act(domain.ActionSync, domain.Ptr(tu.Dir("/changed", "h2")), domain.Ptr(tu.Dir("/changed", empty)), modified, none),
		},
		ForClient: []dirAction{
			tu.Sync(tu.Dir("/server-empty", empty), none, created),
		},
	}

	got := CollapseEmptyDirectories(context.Background(), s, plan)

	if got.ForServer[0].Kind != domain.ActionAcknowledge {
		t.Errorf("Expected new empty directory to be acknowledged, got %s", got.ForServer[0])
	}
	if got.ForServer[0].ID != plan.ForServer[0].ID {
		t.Error("Expected acknowledge to keep the sync's ID")
	}
	if got.ForServer[1].Kind != domain.ActionSync {
		t.Errorf("Expected non-empty sync to stay, got %s", got.ForServer[1])
	}
	if got.ForServer[2].Kind != domain.ActionSync {
		t.Errorf("Expected modification to stay a sync, got %s", got.ForServer[2])
	}
	if got.ForClient[0].Kind != domain.ActionAcknowledge {
		t.Errorf("Expected server-created empty directory to be acknowledged, got %s", got.ForClient[0])
	}
}

func TestOrderDirectories(t *testing.T) {
	plan := domain.DirectoryPlan{
		ForServer: []dirAction{
			tu.Sync(tu.Dir("/b", "h1"), created, none),
			tu.Remove(tu.Dir("/x", "h2"), deleted, none),
			tu.Sync(tu.Dir("/a/k", "h9"), none, none),
			tu.Remove(tu.Dir("/x/y", "h3"), deleted, none),
			tu.AckRemoved(tu.Dir("/c", "h4"), deleted, none),
			tu.Act(domain.ActionEdit, domain.Ptr(tu.Dir("/a", "h5")), domain.Ptr(tu.Dir("/m", "h5")), deleted, none),
			tu.Remove(tu.Dir("/a/q", "h6"), deleted, none),
		},
	}

	got := OrderDirectories(context.Background(), NewSession(nil), plan)

	assertActions(t, "server", got.ForServer, []string{
		"edit(/a|h5 -> /m|h5)",
		"remove(/x/y|h3 -> null)",
		"remove(/x|h2 -> null)",
		"remove(/m/q|h6 -> null)",
		"acknowledge(/c|h4 -> null)",
		"sync(null -> /m/k|h9)",
		"sync(null -> /b|h1)",
	})
}
