package main

import (
	jsoniter "github.com/json-iterator/go"
)

// codec encodes book records saved into redis, boltdb and the replication queues.
var codec = jsoniter.ConfigCompatibleWithStandardLibrary
