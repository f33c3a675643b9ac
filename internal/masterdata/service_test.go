package masterdata_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlife/greenlife-admin/internal/masterdata"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/shared"
)

func TestCommissionTotalIsComputed(t *testing.T) {
	res, ok := masterdata.Find("commissions")
	require.True(t, ok)

	body := masterdata.Body(res, url.Values{"type": {"Seedlings"}, "initial": {"2.5"}, "last": {"1.5"}}, true)
	assert.Equal(t, 4.0, body["total"])

	rec := greenlife.Record{"initial": 2.5, "last": "1.5"}
	assert.Equal(t, "4%", res.Columns[3].Value(rec))
}

func TestPasswordOnlyOnCreate(t *testing.T) {
	res, ok := masterdata.Find("users")
	require.True(t, ok)
	svc := masterdata.NewService(&stubUpstream{}, nil)

	values := url.Values{"staffNo": {"S1"}, "name": {"N"}, "email": {"n@gl.co"}, "phone": {"1"}, "regionId": {"1"}, "groupId": {"2"}, "titleCode": {"T"}}
	assert.Equal(t, map[string]string{"password": "Password is required"}, svc.Validate(res, values, true))
	assert.Empty(t, svc.Validate(res, values, false))
}

func TestRecordNotFound(t *testing.T) {
	svc := masterdata.NewService(&stubUpstream{records: []greenlife.Record{{"id": "1"}}}, nil)
	res, _ := masterdata.Find("regions")
	_, err := svc.Record(context.Background(), res, "2")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResourcePaths(t *testing.T) {
	res, ok := masterdata.Find("subregion-managers")
	require.True(t, ok)
	assert.Equal(t, "/sub-region-manager/all", res.ListPath())
	assert.Equal(t, "/sub-region-manager/update", res.UpdatePath())
	assert.Equal(t, "deleteSubRegionManager", res.Perm("delete"))

	_, ok = masterdata.Find("companies")
	assert.False(t, ok)
}
