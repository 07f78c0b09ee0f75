package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markdesk-server/internal/fsutil"
	"markdesk-server/internal/trash"
	"markdesk-server/internal/workspace"
)

var fixedNow = time.Date(2025, 12, 1, 8, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *trash.Store, string) {
	t.Helper()
	root := t.TempDir()
	reg := workspace.NewRegistry()
	require.NoError(t, reg.Set(root))

	guard := workspace.NewGuard()
	locks := fsutil.NewLocker()
	clock := func() time.Time { return fixedNow }
	store := trash.NewStore(reg, guard, trash.WithLocker(locks), trash.WithClock(clock))
	svc := NewService(reg, guard, store, WithLocker(locks), WithClock(clock))
	return svc, store, root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestService_ListPostsAndFolders(t *testing.T) {
	svc, store, root := newTestService(t)
	ctx := context.Background()

	writeFile(t, root, "hello.md", "a")
	writeFile(t, root, "drafts/later.md", "b")
	writeFile(t, root, "drafts/image.png", "c")
	writeFile(t, root, "source/_posts/deep/post.md", "d")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))
	writeFile(t, root, "gone.md", "e")
	_, err := store.SoftDelete(ctx, "gone.md")
	require.NoError(t, err)

	posts, err := svc.ListPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"drafts/later.md", "hello.md", "source/_posts/deep/post.md"}, posts)

	folders, err := svc.ListFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"drafts", "empty", "source", "source/_posts", "source/_posts/deep"}, folders)
}

func TestService_ListUnset(t *testing.T) {
	reg := workspace.NewRegistry()
	svc := NewService(reg, workspace.NewGuard(), trash.NewStore(reg, workspace.NewGuard()))

	posts, err := svc.ListPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)

	folders, err := svc.ListFolders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, folders)

	_, err = svc.CreatePost(context.Background(), "x.md")
	assert.ErrorIs(t, err, workspace.ErrNotConfigured)
}

func TestService_CreatePost(t *testing.T) {
	svc, _, root := newTestService(t)
	ctx := context.Background()

	rel, err := svc.CreatePost(ctx, "  drafts\\new.md ")
	require.NoError(t, err)
	assert.Equal(t, "drafts/new.md", rel)

	data, err := os.ReadFile(filepath.Join(root, "drafts", "new.md"))
	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: New Post\ndate: 2025-12-01 08:30:00\n---\n\n", string(data))

	_, err = svc.CreatePost(ctx, "drafts/new.md")
	assert.ErrorIs(t, err, trash.ErrConflict)

	_, err = svc.CreatePost(ctx, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreatePost(ctx, "../../escape.md")
	assert.True(t, workspace.IsConfinement(err))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(filepath.Dir(root)), "escape.md"))
}

func TestService_ReadAndSave(t *testing.T) {
	svc, _, root := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SavePost(ctx, "nested/dir/post.md", "# Title\n"))
	content, err := svc.ReadPost(ctx, "nested/dir/post.md")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n", content)

	require.NoError(t, svc.SavePost(ctx, "nested/dir/post.md", "updated"))
	content, err = svc.ReadPost(ctx, "nested/dir/post.md")
	require.NoError(t, err)
	assert.Equal(t, "updated", content)

	_, err = svc.ReadPost(ctx, "missing.md")
	assert.ErrorIs(t, err, trash.ErrNotFound)

	_, err = svc.ReadPost(ctx, "nested")
	assert.ErrorIs(t, err, trash.ErrInvalidOperation)

	writeFile(t, root, "pic.png", "binary")
	_, err = svc.ReadPost(ctx, "pic.png")
	assert.ErrorIs(t, err, trash.ErrInvalidOperation)

	assert.True(t, workspace.IsConfinement(svc.SavePost(ctx, "../../etc/passwd", "x")))
	assert.ErrorIs(t, svc.SavePost(ctx, ".trash/x.md", "x"), trash.ErrInvalidOperation)

	entries, err := os.ReadDir(filepath.Join(root, "nested", "dir"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestService_CreateFolder(t *testing.T) {
	svc, _, root := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateFolder(ctx, "a/b/c"))
	assert.DirExists(t, filepath.Join(root, "a", "b", "c"))

	assert.ErrorIs(t, svc.CreateFolder(ctx, "a/b"), trash.ErrConflict)
	assert.ErrorIs(t, svc.CreateFolder(ctx, ""), ErrInvalidInput)
	assert.True(t, workspace.IsConfinement(svc.CreateFolder(ctx, "../outside")))
}

func TestService_DeleteRoutesThroughTrash(t *testing.T) {
	svc, store, root := newTestService(t)
	ctx := context.Background()
	writeFile(t, root, "folder/post.md", "x")
	writeFile(t, root, "single.md", "y")

	trashPath, err := svc.DeleteFolder(ctx, "folder")
	require.NoError(t, err)
	assert.Equal(t, "20251201T083000Z/folder", trashPath)

	// DeleteFolder only requires existence, like the post variant.
	trashPath, err = svc.DeleteFolder(ctx, "single.md")
	require.NoError(t, err)
	assert.Equal(t, "20251201T083000Z/single.md", trashPath)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, entries, "20251201T083000Z/folder/post.md")

	_, err = svc.DeletePost(ctx, "")
	assert.ErrorIs(t, err, workspace.ErrRootDeletion)
}

func TestService_Move(t *testing.T) {
	svc, _, root := newTestService(t)
	ctx := context.Background()
	writeFile(t, root, "a.md", "a")
	writeFile(t, root, "b.md", "b")
	writeFile(t, root, "dir/inner.md", "i")

	moved, err := svc.Move(ctx, "a.md", "archive/2025/a.md")
	require.NoError(t, err)
	assert.Equal(t, "archive/2025/a.md", moved)
	assert.FileExists(t, filepath.Join(root, "archive", "2025", "a.md"))

	_, err = svc.Move(ctx, "b.md", "archive/2025/a.md")
	assert.ErrorIs(t, err, trash.ErrConflict)

	_, err = svc.Move(ctx, "missing.md", "x.md")
	assert.ErrorIs(t, err, trash.ErrNotFound)

	_, err = svc.Move(ctx, "dir", "dir/sub/dir")
	assert.ErrorIs(t, err, trash.ErrInvalidOperation)

	_, err = svc.Move(ctx, "b.md", "../../b.md")
	assert.True(t, workspace.IsConfinement(err))

	_, err = svc.Move(ctx, "b.md", ".trash/b.md")
	assert.ErrorIs(t, err, trash.ErrInvalidOperation)
}

func TestService_Rename(t *testing.T) {
	svc, _, root := newTestService(t)
	ctx := context.Background()
	writeFile(t, root, "posts/old.md", "x")

	renamed, err := svc.Rename(ctx, "posts/old.md", "new.md")
	require.NoError(t, err)
	assert.Equal(t, "posts/new.md", renamed)
	assert.FileExists(t, filepath.Join(root, "posts", "new.md"))

	_, err = svc.Rename(ctx, "posts/new.md", "../evil.md")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Rename(ctx, "posts", "renamed")
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(root, "renamed"))
}

func TestService_InitPostsFolder(t *testing.T) {
	svc, _, root := newTestService(t)

	assert.False(t, IsHexoSite(root))
	postsPath, err := svc.InitPostsFolder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "source", "_posts"), postsPath)
	assert.True(t, IsHexoSite(root))
}
