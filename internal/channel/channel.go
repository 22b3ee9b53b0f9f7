package channel

import (
	"sort"
	"time"
)

// Builder 根据描述与选项生成渠道原生的结构化内容。
type Builder func(description string, options map[string]any) (map[string]any, error)

// Channel 描述了一个消息渠道及其支持的产物类型。
type Channel struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Capabilities []string `json:"capabilities"`
	Artifacts    []string `json:"supported_artifacts"`

	builders map[string]Builder
}

// Supports 判断渠道是否支持指定的产物类型。
func (c Channel) Supports(artifactType string) bool {
	_, ok := c.builders[artifactType]
	return ok
}

func (c Channel) clone() *Channel {
	out := c
	out.Capabilities = append([]string(nil), c.Capabilities...)
	out.Artifacts = append([]string(nil), c.Artifacts...)
	return &out
}

func (c *Channel) syncArtifacts() {
	c.Artifacts = make([]string, 0, len(c.builders))
	for name := range c.builders {
		c.Artifacts = append(c.Artifacts, name)
	}
	sort.Strings(c.Artifacts)
}

// Artifact 是一次产物生成的返回结果，不做持久化。
type Artifact struct {
	Channel      string         `json:"channel"`
	ArtifactType string         `json:"artifact_type"`
	Description  string         `json:"description"`
	Artifact     map[string]any `json:"artifact"`
	GeneratedAt  time.Time      `json:"generated_at"`
}
