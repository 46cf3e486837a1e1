// Copyright (c) 2018 The Jaeger Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kafka

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const versionTopicSeparator = "_v"

// VersionTopicCodec parses version topics of the form "{storeName}_v{N}".
type VersionTopicCodec struct{}

// ParseVersionNumber implements quota.VersionTopicCodec.
func (VersionTopicCodec) ParseVersionNumber(topic string) (int, error) {
	idx := strings.LastIndex(topic, versionTopicSeparator)
	if idx < 0 || idx+len(versionTopicSeparator) >= len(topic) {
		return 0, errors.Errorf("version topic %q does not match {storeName}_v{N}", topic)
	}
	number, err := strconv.Atoi(topic[idx+len(versionTopicSeparator):])
	if err != nil {
		return 0, errors.Wrapf(err, "parsing version number from topic %q", topic)
	}
	return number, nil
}

// StoreName returns the store-name prefix of a version topic.
func (VersionTopicCodec) StoreName(topic string) string {
	idx := strings.LastIndex(topic, versionTopicSeparator)
	if idx < 0 {
		return topic
	}
	return topic[:idx]
}
