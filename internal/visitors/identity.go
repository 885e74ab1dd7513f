package visitors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
)

// BuildFingerprint derives a stable visitor identifier from browser
// signals. Unlike a rotating signature, the fingerprint is intentionally
// stable across days so returning visitors accumulate history; the IP
// only ever enters the hash together with the private salt.
func BuildFingerprint(domain, ipAddress, userAgent, salt string) string {
	data := fmt.Sprintf("%s.%s.%s.%s", salt, domain, ipAddress, userAgent)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

var aliasAdjectives = []string{
	"Curious", "Happy", "Clever", "Wise", "Playful", "Brave", "Swift", "Gentle", "Smart", "Busy",
	"Bold", "Bright", "Calm", "Cheerful", "Daring", "Eager", "Friendly", "Keen", "Lively", "Quiet",
	"Nimble", "Patient", "Quick", "Steady", "Warm", "Witty", "Zesty", "Humble", "Merry", "Noble",
}

var aliasAnimals = []string{
	"Panda", "Fox", "Owl", "Otter", "Lion", "Eagle", "Deer", "Raven", "Beaver", "Koala",
	"Sloth", "Hamster", "Cat", "Bear", "Penguin", "Kangaroo", "Parrot", "Giraffe", "Duck", "Raccoon",
	"Dolphin", "Whale", "Turtle", "Falcon", "Hawk", "Swan", "Crane", "Heron", "Finch", "Dove",
}

// Alias returns a human-friendly anonymized display name for a
// fingerprint, stable for the same input.
func Alias(fingerprint string) string {
	h := fnv.New32a()
	h.Write([]byte(fingerprint))
	index := int(h.Sum32())

	adjIndex := index % len(aliasAdjectives)
	animalIndex := (index / len(aliasAdjectives)) % len(aliasAnimals)

	return aliasAdjectives[adjIndex] + " " + aliasAnimals[animalIndex]
}
