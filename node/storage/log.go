package storage

import (
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "storage")
