package config

const (
	PushbulletTokenVar   = "PUSHBULLET_TOKEN"
	PushbulletBaseURLVar = "PUSHBULLET_BASE_URL"
)

type NotifyConfig interface {
	GetPushbulletToken() string
	GetPushbulletBaseURL() string
}

type Notify struct{}

var _ NotifyConfig = Notify{}

func (Notify) GetPushbulletToken() string {
	return GetEnv(PushbulletTokenVar, "")
}

func (Notify) GetPushbulletBaseURL() string {
	return GetEnv(PushbulletBaseURLVar, "")
}
