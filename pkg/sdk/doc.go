// Package voicecore provides an embedded Go client for the voicecore response
// engine: tiered matching over an archived clip library with a self-learning
// response cache.
//
// The client wires the engine in-process over a Redis instance and a local
// SQLite clip manifest. Matching works out of the box; the semantic tier
// activates once an embedding provider is configured, and full turn handling
// (fast/slow generation tracks) activates once generators are configured.
//
//	client, _ := voicecore.New(ctx,
//	    voicecore.WithRedis("localhost:6379", ""),
//	    voicecore.WithDataDir("./data"),
//	    voicecore.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	res := client.Match(ctx, "tamam başlıyorum")
//	if res.Tier != voicecore.TierMiss {
//	    play(res.AudioRef)
//	}
//
// With generators configured the client runs complete turns, streaming
// emissions to a callback:
//
//	client.HandleTurn(ctx, "turn-1", "how do I restart the router",
//	    func(e voicecore.Emission) { send(e) })
package voicecore
