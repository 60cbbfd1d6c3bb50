package api

import (
	"context"
	"strconv"
	"strings"

	"github.com/aluiziolira/cfscrape/models"
)

// UserInfo calls user.info for handles.
func (c *Client) UserInfo(ctx context.Context, handles []string) ([]models.User, error) {
	const method = "user.info"
	raw, err := c.Call(ctx, method, map[string]string{
		"handles": strings.Join(handles, ";"),
	})
	if err != nil {
		return nil, err
	}
	return decode[[]models.User](method, raw)
}

// RatedList calls user.ratedList.
func (c *Client) RatedList(ctx context.Context, activeOnly bool) ([]models.User, error) {
	const method = "user.ratedList"
	raw, err := c.Call(ctx, method, map[string]string{
		"activeOnly":     strconv.FormatBool(activeOnly),
		"includeRetired": "false",
	})
	if err != nil {
		return nil, err
	}
	return decode[[]models.User](method, raw)
}

// ContestList calls contest.list.
func (c *Client) ContestList(ctx context.Context, gym bool) ([]models.Contest, error) {
	const method = "contest.list"
	raw, err := c.Call(ctx, method, map[string]string{
		"gym": strconv.FormatBool(gym),
	})
	if err != nil {
		return nil, err
	}
	return decode[[]models.Contest](method, raw)
}

// ContestStandings calls contest.standings. count <= 0 requests every row.
func (c *Client) ContestStandings(ctx context.Context, contestID, count int) (*models.Standings, error) {
	const method = "contest.standings"
	params := map[string]string{
		"contestId": strconv.Itoa(contestID),
	}
	if count > 0 {
		params["from"] = "1"
		params["count"] = strconv.Itoa(count)
	}
	raw, err := c.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	standings, err := decode[models.Standings](method, raw)
	if err != nil {
		return nil, err
	}
	return &standings, nil
}

// ProblemsetProblems calls problemset.problems, optionally filtered by tags.
func (c *Client) ProblemsetProblems(ctx context.Context, tags []string) (*models.ProblemsetResult, error) {
	const method = "problemset.problems"
	params := map[string]string{}
	if len(tags) > 0 {
		params["tags"] = strings.Join(tags, ";")
	}
	raw, err := c.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	result, err := decode[models.ProblemsetResult](method, raw)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
