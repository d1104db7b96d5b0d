package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambabib/cpm-migrate/pkg/analyzer"
	"github.com/sambabib/cpm-migrate/pkg/project"
)

func writeProject(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

const projA = `<Project>
  <ItemGroup>
    <PackageReference Include="Newtonsoft.Json" Version="12.0.3" />
    <PackageReference Include="Serilog" Version="3.1.1" />
  </ItemGroup>
</Project>
`

const projB = `<Project>
  <ItemGroup>
    <PackageReference Include="newtonsoft.json" Version="13.0.1" />
  </ItemGroup>
</Project>
`

func analyze(t *testing.T, root string) *analyzer.AnalysisPlan {
	t.Helper()
	plan, err := (&analyzer.Analyzer{}).Analyze(context.Background(), root)
	require.NoError(t, err)
	return plan
}

func TestRun_MigratesAndCommits(t *testing.T) {
	root := t.TempDir()
	pathA := writeProject(t, root, filepath.Join("A", "A.csproj"), projA)
	pathB := writeProject(t, root, filepath.Join("B", "B.csproj"), projB)

	plan := analyze(t, root)
	require.Len(t, plan.ToMigrate, 2)
	require.Equal(t, 1, plan.ConflictCount)

	out := (&Transaction{}).Run(context.Background(), plan)
	require.True(t, out.Success, out.Error)
	assert.Equal(t, 2, out.ProjectsMigrated)
	assert.Equal(t, 2, out.PackagesCentralized)
	assert.Equal(t, 1, out.ConflictsResolved)
	assert.Equal(t, []string{pathA, pathB}, out.ModifiedPaths)
	assert.Equal(t, filepath.Join(root, project.DefaultManifestName), out.ManifestPath)

	mContent := readFile(t, out.ManifestPath)
	assert.Contains(t, mContent, `<PackageVersion Include="Newtonsoft.Json" Version="13.0.1" />`)
	assert.Contains(t, mContent, `<PackageVersion Include="Serilog" Version="3.1.1" />`)

	assert.NotContains(t, readFile(t, pathA), "12.0.3")
	assert.NotContains(t, readFile(t, pathB), "13.0.1")

	// Backups carry the exact pre-migration bytes and are kept as an audit
	// trail.
	tx := &Transaction{}
	assert.Equal(t, projA, readFile(t, tx.BackupPath(pathA)))
	assert.Equal(t, projB, readFile(t, tx.BackupPath(pathB)))
}

func TestRun_RoundTripThroughReader(t *testing.T) {
	root := t.TempDir()
	pathA := writeProject(t, root, filepath.Join("A", "A.csproj"), projA)

	plan := analyze(t, root)
	out := (&Transaction{}).Run(context.Background(), plan)
	require.True(t, out.Success, out.Error)

	st, err := (&project.Reader{}).Read(pathA)
	require.NoError(t, err)
	assert.True(t, st.CentralEnabled)
	require.Len(t, st.References, 2)
	for _, ref := range st.References {
		assert.Equal(t, project.SourceCentral, ref.Source)
		assert.Equal(t, plan.ResolvedVersions[ref.ID], ref.Version)
	}
}

func TestRun_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeProject(t, root, filepath.Join("A", "A.csproj"), projA)

	out := (&Transaction{}).Run(context.Background(), analyze(t, root))
	require.True(t, out.Success, out.Error)

	// A second analysis of the migrated tree has nothing left to migrate.
	plan := analyze(t, root)
	assert.Empty(t, plan.ToMigrate)
	assert.Zero(t, plan.ConflictCount)
	for _, skipped := range plan.Skipped {
		assert.Equal(t, analyzer.SkipReasonAlreadyCentral, skipped.SkipReason)
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	root := t.TempDir()
	pathA := writeProject(t, root, filepath.Join("A", "A.csproj"), projA)
	plan := analyze(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := (&Transaction{}).Run(ctx, plan)

	assert.False(t, out.Success)
	assert.Equal(t, "migration cancelled", out.Error)
	assert.Equal(t, projA, readFile(t, pathA))
	_, err := os.Stat(filepath.Join(root, project.DefaultManifestName))
	assert.True(t, os.IsNotExist(err))
	// Cancellation before the first backup leaves no backup artifacts.
	_, err = os.Stat((&Transaction{}).BackupPath(pathA))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_RollbackOnRewriteFailure(t *testing.T) {
	root := t.TempDir()
	pathA := writeProject(t, root, filepath.Join("A", "A.csproj"), projA)
	plan := analyze(t, root)
	require.Len(t, plan.ToMigrate, 1)

	// Corrupt the project between analysis and migration so the rewrite
	// fails after the backup and manifest write succeeded.
	require.NoError(t, os.WriteFile(pathA, []byte("<Project><ItemGroup></Project>"), 0644))

	out := (&Transaction{}).Run(context.Background(), plan)
	require.False(t, out.Success)
	assert.NotEqual(t, "migration cancelled", out.Error)

	// The backed-up bytes (taken at migration start) are restored and the
	// freshly created manifest is gone.
	assert.Equal(t, "<Project><ItemGroup></Project>", readFile(t, pathA))
	_, err := os.Stat(filepath.Join(root, project.DefaultManifestName))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_RollbackRestoresAllBackedUpProjects(t *testing.T) {
	root := t.TempDir()
	pathA := writeProject(t, root, filepath.Join("A", "A.csproj"), projA)
	pathB := writeProject(t, root, filepath.Join("B", "B.csproj"), projB)
	plan := analyze(t, root)
	require.Len(t, plan.ToMigrate, 2)

	// Second project fails to rewrite; the first was already rewritten and
	// must be rolled back too.
	require.NoError(t, os.WriteFile(pathB, []byte("broken <<"), 0644))

	out := (&Transaction{}).Run(context.Background(), plan)
	require.False(t, out.Success)
	assert.Equal(t, projA, readFile(t, pathA))
	assert.Equal(t, "broken <<", readFile(t, pathB))
}

func TestRun_RollbackRestoresPreexistingManifest(t *testing.T) {
	root := t.TempDir()
	preexisting := `<Project>
  <PropertyGroup>
    <ManagePackageVersionsCentrally>true</ManagePackageVersionsCentrally>
  </PropertyGroup>
  <ItemGroup>
    <PackageVersion Include="Serilog" Version="3.0.0" />
  </ItemGroup>
</Project>
`
	manifestPath := writeProject(t, root, project.DefaultManifestName, preexisting)
	pathA := writeProject(t, root, filepath.Join("A", "A.csproj"), projA)
	plan := analyze(t, root)
	require.Len(t, plan.ToMigrate, 1)

	require.NoError(t, os.WriteFile(pathA, []byte("broken <<"), 0644))

	out := (&Transaction{}).Run(context.Background(), plan)
	require.False(t, out.Success)
	// The merge upgraded Serilog to 3.1.1, then rollback restored the
	// snapshot byte-for-byte.
	assert.Equal(t, preexisting, readFile(t, manifestPath))
}

func TestRun_UnreadableManifestSnapshotAbortsWithoutRollback(t *testing.T) {
	root := t.TempDir()
	pathA := writeProject(t, root, filepath.Join("A", "A.csproj"), projA)
	plan := analyze(t, root)
	require.Len(t, plan.ToMigrate, 1)

	// A directory squatting on the manifest path makes the snapshot read
	// fail with something other than not-exist.
	manifestPath := filepath.Join(root, project.DefaultManifestName)
	require.NoError(t, os.Mkdir(manifestPath, 0755))

	out := (&Transaction{}).Run(context.Background(), plan)
	require.False(t, out.Success)
	assert.Contains(t, out.Error, "reading existing manifest")

	// Nothing was mutated and nothing was removed: the squatting object is
	// still there, the project is untouched, and no backup was taken.
	info, err := os.Stat(manifestPath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, projA, readFile(t, pathA))
	_, err = os.Stat((&Transaction{}).BackupPath(pathA))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_NeverDowngradesExistingManifestEntry(t *testing.T) {
	root := t.TempDir()
	writeProject(t, root, project.DefaultManifestName, `<Project>
  <PropertyGroup>
    <ManagePackageVersionsCentrally>true</ManagePackageVersionsCentrally>
  </PropertyGroup>
  <ItemGroup>
    <PackageVersion Include="Newtonsoft.Json" Version="13.0.1" />
  </ItemGroup>
</Project>
`)
	pathA := writeProject(t, root, filepath.Join("A", "A.csproj"), `<Project>
  <ItemGroup>
    <PackageReference Include="Newtonsoft.Json" Version="12.0.3" />
  </ItemGroup>
</Project>
`)

	plan := analyze(t, root)
	out := (&Transaction{}).Run(context.Background(), plan)
	require.True(t, out.Success, out.Error)

	assert.Contains(t, readFile(t, out.ManifestPath), `Version="13.0.1"`)
	assert.NotContains(t, readFile(t, out.ManifestPath), `12.0.3`)
	assert.NotContains(t, readFile(t, pathA), "12.0.3")
}

func TestRun_RangeVersionMigratedVerbatim(t *testing.T) {
	root := t.TempDir()
	pathA := writeProject(t, root, filepath.Join("A", "A.csproj"), `<Project>
  <ItemGroup>
    <PackageReference Include="Microsoft.Extensions.Http" Version="[7.0.0, 8.0.0)" />
    <PackageReference Include="Serilog" Version="3.1.1" />
  </ItemGroup>
</Project>
`)

	plan := analyze(t, root)
	out := (&Transaction{}).Run(context.Background(), plan)
	require.True(t, out.Success, out.Error)

	mContent := readFile(t, out.ManifestPath)
	assert.Contains(t, mContent, `<PackageVersion Include="Microsoft.Extensions.Http" Version="[7.0.0, 8.0.0)" />`)
	assert.Contains(t, mContent, `<PackageVersion Include="Serilog" Version="3.1.1" />`)
	assert.NotContains(t, readFile(t, pathA), "[7.0.0, 8.0.0)")
}

func TestRun_EmptyPlanIsNoOp(t *testing.T) {
	root := t.TempDir()
	plan := &analyzer.AnalysisPlan{Root: root}
	out := (&Transaction{}).Run(context.Background(), plan)
	assert.True(t, out.Success)
	assert.Zero(t, out.ProjectsMigrated)
	_, err := os.Stat(filepath.Join(root, project.DefaultManifestName))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_CustomBackupSuffixAndManifestName(t *testing.T) {
	root := t.TempDir()
	pathA := writeProject(t, root, filepath.Join("A", "A.csproj"), projA)
	plan := analyze(t, root)

	tx := &Transaction{ManifestName: "Packages.props", BackupSuffix: ".bak"}
	out := tx.Run(context.Background(), plan)
	require.True(t, out.Success, out.Error)
	assert.Equal(t, filepath.Join(root, "Packages.props"), out.ManifestPath)
	assert.Equal(t, projA, readFile(t, pathA+".bak"))
}
