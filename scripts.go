package redistruct

import goredis "github.com/redis/go-redis/v9"

// Set cache layout: one sorted set per name, member = codec bytes,
// score = expiration in unix ms. Eternal members carry eternalScore.
// Every script reads the clock from the server so all clients agree on "now".
const eternalScore = "92233720368547758"

const luaNow = `
local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
`

// KEYS[1] set; ARGV[1] ttl ms (<= 0 => eternal); ARGV[2..n] members.
// A member that is still live keeps its expiration. Returns how many members
// became live.
var addScript = goredis.NewScript(luaNow + `
local ttl = tonumber(ARGV[1])
local added = 0
for i = 2, #ARGV do
  local score = redis.call('ZSCORE', KEYS[1], ARGV[i])
  if score == false or tonumber(score) <= now then
    if ttl > 0 then
      redis.call('ZADD', KEYS[1], tostring(now + ttl), ARGV[i])
    else
      redis.call('ZADD', KEYS[1], '` + eternalScore + `', ARGV[i])
    end
    added = added + 1
  end
end
return added
`)

// KEYS[1] set; ARGV members. Expired leftovers are dropped too but are not
// counted. Returns how many live members were removed.
var removeScript = goredis.NewScript(luaNow + `
local removed = 0
for i = 1, #ARGV do
  local score = redis.call('ZSCORE', KEYS[1], ARGV[i])
  if score ~= false then
    redis.call('ZREM', KEYS[1], ARGV[i])
    if tonumber(score) > now then
      removed = removed + 1
    end
  end
end
return removed
`)

// KEYS[1] set; ARGV members. 1 iff every member is live.
var containsAllScript = goredis.NewScript(luaNow + `
for i = 1, #ARGV do
  local score = redis.call('ZSCORE', KEYS[1], ARGV[i])
  if score == false or tonumber(score) <= now then
    return 0
  end
end
return 1
`)

// KEYS[1] set. Number of live members.
var sizeScript = goredis.NewScript(luaNow + `
return redis.call('ZCOUNT', KEYS[1], '(' .. now, '+inf')
`)

// KEYS[1] set; ARGV[1] cursor; ARGV[2] count. {next cursor, {live members}}.
var scanScript = goredis.NewScript(luaNow + `
local res = redis.call('ZSCAN', KEYS[1], ARGV[1], 'COUNT', ARGV[2])
local items = res[2]
local live = {}
for i = 1, #items, 2 do
  if tonumber(items[i + 1]) > now then
    table.insert(live, items[i])
  end
end
return {res[1], live}
`)

// KEYS[1] set; ARGV members to keep. Purges expired members, then removes
// every live member not in ARGV. 1 iff a live member was removed.
var retainScript = goredis.NewScript(luaNow + `
local keep = {}
for i = 1, #ARGV do
  keep[ARGV[i]] = true
end
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now)
local changed = 0
local members = redis.call('ZRANGE', KEYS[1], 0, -1)
for _, m in ipairs(members) do
  if not keep[m] then
    redis.call('ZREM', KEYS[1], m)
    changed = 1
  end
end
return changed
`)

// KEYS[1] set; ARGV[1] limit. Removes up to limit expired members and
// returns how many were removed, or -1 when the set does not exist.
var evictScript = goredis.NewScript(luaNow + `
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local expired = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', now, 'LIMIT', 0, tonumber(ARGV[1]))
for _, m in ipairs(expired) do
  redis.call('ZREM', KEYS[1], m)
end
return #expired
`)
