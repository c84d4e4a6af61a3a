package config

import (
    "github.com/vsujeesh/CoSimIO/pkg/metadata"
)

// ConnectionConfig describes one coupling session.
// Example YAML:
// connections:
//   - connection_name: fsi
//     solver_name: structure
//     connect_to: fluid
//     communication_format: socket
//     port: 9000
//     timeout: 30
type ConnectionConfig struct {
    Name              string  `mapstructure:"connection_name"`
    SolverName        string  `mapstructure:"solver_name"`
    SolverVersion     string  `mapstructure:"solver_version"`
    ConnectTo         string  `mapstructure:"connect_to"`
    Primary           *bool   `mapstructure:"is_primary_connection"`
    Format            string  `mapstructure:"communication_format"`
    WorkingDirectory  string  `mapstructure:"working_directory"`
    Host              string  `mapstructure:"host"`
    Port              int     `mapstructure:"port"`
    Timeout           float64 `mapstructure:"timeout"`
    HandshakeRetries  int     `mapstructure:"handshake_retries"`
    HandshakeInterval float64 `mapstructure:"handshake_interval"`
    MetadataCodec     string  `mapstructure:"metadata_codec"`
    EchoLevel         int     `mapstructure:"echo_level"`
}

// Settings converts the block into Connect settings. Zero values are left
// out so the transport defaults apply.
func (c ConnectionConfig) Settings() *metadata.Metadata {
    m := metadata.New()
    m.SetString("connection_name", c.Name)
    str := func(k, v string) { if v != "" { m.SetString(k, v) } }
    str("solver_name", c.SolverName)
    str("solver_version", c.SolverVersion)
    str("connect_to", c.ConnectTo)
    str("communication_format", c.Format)
    str("working_directory", c.WorkingDirectory)
    str("host", c.Host)
    str("metadata_codec", c.MetadataCodec)
    if c.Primary != nil { m.SetBool("is_primary_connection", *c.Primary) }
    if c.Port != 0 { m.SetInt("port", c.Port) }
    if c.Timeout != 0 { m.SetDouble("timeout", c.Timeout) }
    if c.HandshakeRetries != 0 { m.SetInt("handshake_retries", c.HandshakeRetries) }
    if c.HandshakeInterval != 0 { m.SetDouble("handshake_interval", c.HandshakeInterval) }
    if c.EchoLevel != 0 { m.SetInt("echo_level", c.EchoLevel) }
    return m
}
