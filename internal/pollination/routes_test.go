package pollination

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandRoute_SubstitutesAllParams(t *testing.T) {
	t.Parallel()

	got := expandRoute(routeRunOutput, map[string]string{
		"owner":       "demo",
		"name":        "good-project",
		"run_id":      "run-1",
		"output_name": "results",
	})
	require.Equal(t, "/projects/demo/good-project/runs/run-1/outputs/results", got)
}

func TestExpandRoute_EscapesValues(t *testing.T) {
	t.Parallel()

	got := expandRoute(routeAccount, map[string]string{"name": "two words/slash"})
	require.Equal(t, "/accounts/two%20words%2Fslash", got)
}

func TestExpandRoute_LeavesUnknownPlaceholders(t *testing.T) {
	t.Parallel()

	got := expandRoute(routeProjectJob, map[string]string{"owner": "demo", "name": "prj"})
	require.Equal(t, "/projects/demo/prj/jobs/{job_id}", got)
}

func TestRouteTemplates_AreWellFormed(t *testing.T) {
	t.Parallel()

	routes := []string{
		routeUser,
		routeAccount,
		routeProjects,
		routeProjectRecipeFilter,
		routeProjectArtifacts,
		routeProjectJobs,
		routeProjectJob,
		routeJobArtifacts,
		routeJobArtifactDownload,
		routeProjectRuns,
		routeRunOutput,
	}
	for _, route := range routes {
		require.True(t, strings.HasPrefix(route, "/"), "route %s must start with /", route)
		require.Equal(t, strings.Count(route, "{"), strings.Count(route, "}"),
			"route %s has unbalanced placeholders", route)
		require.False(t, strings.Contains(route, "//"), "route %s has an empty segment", route)
	}
}

func TestClient_RecipeSource(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "https://api.staging.pollination.cloud/")
	got := client.RecipeSource(RecipeFilter{
		Owner: "ladybug-tools",
		Name:  "daylight-factor",
		Tag:   "0.5.6",
	})
	require.Equal(t,
		"https://api.staging.pollination.cloud/registries/ladybug-tools/recipe/daylight-factor/0.5.6",
		got,
	)
}
