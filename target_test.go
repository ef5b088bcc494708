package mediagrab

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestTargetNameDefault(t *testing.T) {
	assert := assert_.New(t)

	config := NewTargetConfig()
	content := &Content{
		UID:       "abc-720",
		Fragments: []string{"https://cdn.example.com/path/video.mp4?token=xyz"},
	}
	name, err := config.TargetName(content)
	assert.NoError(err)
	assert.Equal("video.mp4", name)
}

func TestTargetNameTemplate(t *testing.T) {
	assert := assert_.New(t)

	config, err := NewTargetConfigTemplate("{{.Title}}{{.Ext}}")
	assert.NoError(err)
	content := &Content{
		UID:       "abc-720",
		Title:     "My Video",
		Fragments: []string{"https://cdn.example.com/path/video.mp4"},
	}
	name, err := config.TargetName(content)
	assert.NoError(err)
	assert.Equal("My Video.mp4", name)
}

func TestTargetNameTemplateInvalid(t *testing.T) {
	assert := assert_.New(t)
	_, err := NewTargetConfigTemplate("{{.Title")
	assert.Error(err)
}

func TestTargetNameFallbackToUID(t *testing.T) {
	assert := assert_.New(t)

	config := NewTargetConfig()
	content := &Content{
		UID:       "host/stream:1",
		Fragments: []string{"::not a url::"},
	}
	name, err := config.TargetName(content)
	assert.NoError(err)
	assert.Equal("host_stream_1", name)
}

func TestTargetNameTitleDefaultsToUID(t *testing.T) {
	assert := assert_.New(t)

	config, err := NewTargetConfigTemplate("{{.Title}}")
	assert.NoError(err)
	content := &Content{
		UID:       "abc-720",
		Fragments: []string{"https://cdn.example.com/video.mp4"},
	}
	name, err := config.TargetName(content)
	assert.NoError(err)
	assert.Equal("abc-720", name)
}
