// Package tlsutil 提供集中式 TLS 配置，
// 为出站 HTTP 客户端（模型服务商、图像服务、MinIO）与 Redis 连接提供安全加固的 TLS 设置。
package tlsutil
