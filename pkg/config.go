package pkg

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"mistral-probe/logger"

	"crypto/aes"
)

var (
	Config *viper.Viper

	// config keys that may be stored encrypted (see CIPHER)
	keys = []string{
		"mistral.api-key",
	}

	// environment variables overriding config.yaml
	environ = map[string]string{
		"MISTRAL_API_KEY": "mistral.api-key",
		"BASE_URL":        "mistral.base-url",
	}
)

func InitConfig() {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	Config = config
}

func LoadConfig() (*viper.Viper, error) {
	_ = godotenv.Load()

	vip := viper.New()
	vip.SetConfigType("yaml")

	data, err := os.ReadFile("config.yaml")
	if err == nil {
		if err = vip.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	c := os.Getenv("CIPHER")
	if c != "" {
		newCipher, err := aes.NewCipher([]byte(c))
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			content := vip.GetString(key)
			if content != "" {
				var d any
				d, err = decrypt(newCipher, content)
				if err != nil {
					logger.Infof("[%s] decrypt failed", key)
					d = content
				}
				vip.Set(key, d)
			}
		}
	}

	for env, key := range environ {
		if value := os.Getenv(env); value != "" {
			vip.Set(key, value)
		}
	}

	return vip, nil
}

func decrypt(block cipher.Block, content string) (data any, err error) {
	db, err := hex.DecodeString(content)
	if err != nil {
		return
	}

	bToI := func(b []byte) int {
		buffer := bytes.NewBuffer(b)
		var x int32
		_ = binary.Read(buffer, binary.BigEndian, &x)
		return int(x)
	}

	iv := db[:aes.BlockSize]
	contentL := bToI(db[len(db)-4:])
	ctx := db[aes.BlockSize:]
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(ctx, ctx[:len(ctx)-4])
	ctx = ctx[:contentL]

	if json.Unmarshal(ctx, &data) != nil {
		return string(ctx), nil
	}
	return
}
