// Package pollination wraps the Pollination cloud simulation REST API.
//
// The wrapper stays deliberately thin: one method per endpoint, fixed route
// templates, JSON payloads mapped straight onto structs. All scheduling,
// retry, and consistency logic lives in the remote service; the only
// multi-step protocol on the client side is the signed-URL artifact upload.
package pollination

import (
	"net/url"
	"strings"
)

// Route templates for the Pollination REST API. Path parameters use {braces}
// and are substituted by expandRoute before a request is issued.
const (
	routeUser    = "/user"
	routeAccount = "/accounts/{name}"

	routeProjects            = "/projects/{owner}"
	routeProjectRecipeFilter = "/projects/{owner}/{name}/recipes/filters"
	routeProjectArtifacts    = "/projects/{owner}/{name}/artifacts"
	routeProjectJobs         = "/projects/{owner}/{name}/jobs"
	routeProjectJob          = "/projects/{owner}/{name}/jobs/{job_id}"
	routeJobArtifacts        = "/projects/{owner}/{name}/jobs/{job_id}/artifacts"
	routeJobArtifactDownload = "/projects/{owner}/{name}/jobs/{job_id}/artifacts/downloads"
	routeProjectRuns         = "/projects/{owner}/{name}/runs"
	routeRunOutput           = "/projects/{owner}/{name}/runs/{run_id}/outputs/{output_name}"
)

// expandRoute substitutes path parameters into a route template. Values are
// path-escaped so a project named "two words" cannot break the URL.
func expandRoute(template string, params map[string]string) string {
	pairs := make([]string, 0, len(params)*2)
	for key, value := range params {
		pairs = append(pairs, "{"+key+"}", url.PathEscape(value))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// RecipeSource builds the registry URL a job submission points at, e.g.
// https://api.staging.pollination.cloud/registries/ladybug-tools/recipe/daylight-factor/0.5.6.
func (c *Client) RecipeSource(filter RecipeFilter) string {
	return strings.Join([]string{
		strings.TrimSuffix(c.baseURL, "/"),
		"registries",
		filter.Owner,
		"recipe",
		filter.Name,
		filter.Tag,
	}, "/")
}
