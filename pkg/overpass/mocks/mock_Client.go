// Package mocks provides test doubles for the overpass client.
package mocks

import (
	"context"

	overpass "github.com/foodiepair/foodiepair-cli/pkg/overpass"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// DiscoverNearby provides a mock function with given fields: ctx, req
func (_m *MockClient) DiscoverNearby(ctx context.Context, req overpass.DiscoverRequest) ([]overpass.Place, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for DiscoverNearby")
	}

	var r0 []overpass.Place
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, overpass.DiscoverRequest) ([]overpass.Place, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, overpass.DiscoverRequest) []overpass.Place); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]overpass.Place)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, overpass.DiscoverRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
