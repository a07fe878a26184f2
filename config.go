// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the command-line flags so deployments can keep their
// settings in one file. Flags set explicitly on the command line win over
// the file.
type Config struct {
	Addr        string `yaml:"addr"`
	DataDir     string `yaml:"data_dir"`
	Debug       bool   `yaml:"debug"`
	UseMockAuth bool   `yaml:"use_mock_auth"`

	Auth struct {
		CookieName string `yaml:"cookie_name"`
		JWKSURL    string `yaml:"jwks_url"`
	} `yaml:"auth"`

	Raft struct {
		Enabled          bool   `yaml:"enabled"`
		Bind             string `yaml:"bind"`
		Advertise        string `yaml:"advertise"`
		ClusterAddr      string `yaml:"cluster_addr"`
		ClusterAdvertise string `yaml:"cluster_advertise"`
		Secret           string `yaml:"secret"`
		Join             string `yaml:"join"`
		Bootstrap        bool   `yaml:"bootstrap"`
	} `yaml:"raft"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// applyConfig copies file values into any flag the user did not set on the
// command line.
func applyConfig(c *Config) {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	setString := func(name string, dst *string, v string) {
		if !set[name] && v != "" {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool, v bool) {
		if !set[name] && v {
			*dst = v
		}
	}

	setString("addr", addr, c.Addr)
	setString("data-dir", dataDir, c.DataDir)
	setBool("debug", debugMode, c.Debug)
	setBool("use-mock-auth", useMockAuth, c.UseMockAuth)
	setString("auth-cookie-name", authCookieName, c.Auth.CookieName)
	setString("auth-jwks-url", authJWKSURL, c.Auth.JWKSURL)
	setBool("raft", raftEnabled, c.Raft.Enabled)
	setString("raft-bind", raftBind, c.Raft.Bind)
	setString("raft-advertise", raftAdvertise, c.Raft.Advertise)
	setString("cluster-addr", clusterAddr, c.Raft.ClusterAddr)
	setString("cluster-advertise", clusterAdvertise, c.Raft.ClusterAdvertise)
	setString("raft-secret", raftSecret, c.Raft.Secret)
	setString("raft-join", raftJoin, c.Raft.Join)
	setBool("raft-bootstrap", raftBootstrap, c.Raft.Bootstrap)
}
