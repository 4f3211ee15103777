package shadow

const tokenPath = "clientToken"

// ClassicTopic returns the topic prefix of a thing's classic shadow.
func ClassicTopic(thingName string) string {
	return "$aws/things/" + thingName + "/shadow"
}

// NamedTopic returns the topic prefix of a named shadow.
func NamedTopic(thingName, shadowName string) string {
	return ClassicTopic(thingName) + "/name/" + shadowName
}
