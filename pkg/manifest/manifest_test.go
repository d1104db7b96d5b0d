package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_CreatesFreshManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Directory.Packages.props")
	err := Write(path, map[string]string{
		"Serilog":         "3.1.1",
		"Newtonsoft.Json": "13.0.1",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "<ManagePackageVersionsCentrally>true</ManagePackageVersionsCentrally>")
	assert.Contains(t, content, `<PackageVersion Include="Newtonsoft.Json" Version="13.0.1" />`)
	assert.Contains(t, content, `<PackageVersion Include="Serilog" Version="3.1.1" />`)
	// Sorted case-insensitively, so Newtonsoft before Serilog.
	assert.Less(t, strings.Index(content, "Newtonsoft"), strings.Index(content, "Serilog"))
}

func TestWrite_RangeVersionStoredVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Directory.Packages.props")
	require.NoError(t, Write(path, map[string]string{"Microsoft.Extensions.Http": "[7.0.0, 8.0.0)"}))

	data, _ := os.ReadFile(path)
	assert.Contains(t, string(data), `<PackageVersion Include="Microsoft.Extensions.Http" Version="[7.0.0, 8.0.0)" />`)
}

const existingManifest = `<Project>
  <!-- pinned by the platform team -->
  <PropertyGroup>
    <ManagePackageVersionsCentrally>true</ManagePackageVersionsCentrally>
  </PropertyGroup>
  <ItemGroup>
    <PackageVersion Include="Newtonsoft.Json" Version="13.0.1" />
    <PackageVersion Include="Untouched.Package" Version="2.0.0" />
  </ItemGroup>
</Project>
`

func TestMerge_NeverDowngrades(t *testing.T) {
	out, err := Merge("Directory.Packages.props", []byte(existingManifest), map[string]string{
		"newtonsoft.json": "12.0.3",
	})
	require.NoError(t, err)
	// Lower resolved version: the file comes back byte-identical.
	assert.Equal(t, existingManifest, string(out))
}

func TestMerge_EqualVersionLeftAlone(t *testing.T) {
	out, err := Merge("Directory.Packages.props", []byte(existingManifest), map[string]string{
		"Newtonsoft.Json": "13.0.1",
	})
	require.NoError(t, err)
	assert.Equal(t, existingManifest, string(out))
}

func TestMerge_UpgradesStrictlyGreater(t *testing.T) {
	out, err := Merge("Directory.Packages.props", []byte(existingManifest), map[string]string{
		"Newtonsoft.Json": "13.0.3",
	})
	require.NoError(t, err)
	content := string(out)
	assert.Contains(t, content, `<PackageVersion Include="Newtonsoft.Json" Version="13.0.3" />`)
	// Everything else, comment included, survives verbatim.
	assert.Contains(t, content, "<!-- pinned by the platform team -->")
	assert.Contains(t, content, `<PackageVersion Include="Untouched.Package" Version="2.0.0" />`)
}

func TestMerge_AppendsMissingEntries(t *testing.T) {
	out, err := Merge("Directory.Packages.props", []byte(existingManifest), map[string]string{
		"Serilog": "3.1.1",
	})
	require.NoError(t, err)
	content := string(out)
	assert.Contains(t, content, `    <PackageVersion Include="Serilog" Version="3.1.1" />`)
	// Existing entries are neither removed nor reordered.
	njIdx := strings.Index(content, "Newtonsoft.Json")
	upIdx := strings.Index(content, "Untouched.Package")
	assert.Greater(t, upIdx, njIdx)
	assert.Contains(t, content, "<!-- pinned by the platform team -->")
}

func TestMerge_ChildElementVersionUpgraded(t *testing.T) {
	existing := `<Project>
  <ItemGroup>
    <PackageVersion Include="Serilog">
      <Version>3.0.0</Version>
    </PackageVersion>
  </ItemGroup>
</Project>
`
	out, err := Merge("Directory.Packages.props", []byte(existing), map[string]string{"Serilog": "3.1.1"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "<Version>3.1.1</Version>")
	assert.NotContains(t, string(out), "3.0.0")
}

func TestMerge_CreatesItemGroupWhenAbsent(t *testing.T) {
	existing := `<Project>
  <PropertyGroup>
    <ManagePackageVersionsCentrally>true</ManagePackageVersionsCentrally>
  </PropertyGroup>
</Project>
`
	out, err := Merge("Directory.Packages.props", []byte(existing), map[string]string{"Serilog": "3.1.1"})
	require.NoError(t, err)
	content := string(out)
	assert.Contains(t, content, "<ItemGroup>")
	assert.Contains(t, content, `<PackageVersion Include="Serilog" Version="3.1.1" />`)
	// Still well-formed: the new group sits inside Project.
	assert.Less(t, strings.Index(content, "<ItemGroup>"), strings.Index(content, "</Project>"))
}

func TestMerge_InvalidExistingManifest(t *testing.T) {
	_, err := Merge("Directory.Packages.props", []byte("<Project><ItemGroup></Project>"), map[string]string{"A": "1.0.0"})
	assert.Error(t, err)
}

func TestWrite_MergesIntoExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Directory.Packages.props")
	require.NoError(t, os.WriteFile(path, []byte(existingManifest), 0644))

	err := Write(path, map[string]string{
		"Newtonsoft.Json": "14.0.0",
		"Serilog":         "3.1.1",
	})
	require.NoError(t, err)

	data, _ := os.ReadFile(path)
	content := string(data)
	assert.Contains(t, content, `Version="14.0.0"`)
	assert.Contains(t, content, `<PackageVersion Include="Serilog" Version="3.1.1" />`)
	assert.Contains(t, content, `<PackageVersion Include="Untouched.Package" Version="2.0.0" />`)
}
