//
// Tencent is pleased to support the open source community by making trpc-game-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-game-go is licensed under the Apache License Version 2.0.
//
//

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "game-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/x-javascript")
		_, _ = w.Write([]byte(`{"Heading":"Go","AbstractText":"A language","ImageWidth":64,"ImageHeight":"","RelatedTopics":[{"Text":"Go - lang","FirstURL":"https://duckduckgo.com/Go"}]}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, "game-test", nil).Search(context.Background(), "golang")
	require.NoError(t, err)
	assert.Equal(t, "Go", resp.Heading)
	assert.Equal(t, Number("64"), resp.ImageWidth)
	require.Len(t, resp.RelatedTopics, 1)
	assert.Equal(t, "https://duckduckgo.com/Go", resp.RelatedTopics[0].FirstURL)
}

func TestSearchErrors(t *testing.T) {
	_, err := New("http://localhost", "ua", nil).Search(context.Background(), "  ")
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	_, err = New(srv.URL, "ua", &http.Client{}).Search(context.Background(), "q")
	assert.ErrorContains(t, err, "502")

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer bad.Close()
	_, err = New(bad.URL, "ua", nil).Search(context.Background(), "q")
	assert.ErrorContains(t, err, "parse")
}
