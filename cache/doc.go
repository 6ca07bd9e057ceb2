// Package cache 提供响应缓存的后端实现：进程内 LRU 与 Redis。
// 两者都实现 llm.CacheStore；缓存中间件只依赖该接口，
// 后端的并发控制与淘汰策略由各实现自行负责。
package cache
