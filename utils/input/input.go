package input

import (
	"context"
	"errors"
	"fmt"
	"os"

	"git.fiblab.net/general/common/v2/cache"
	"git.fiblab.net/general/common/v2/mongoutil"
	"git.fiblab.net/general/common/v2/protoutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/protobuf/proto"
)

// Input 输入数据
// 功能：存储仿真所需的道路网络
type Input struct {
	Map *mapv2.Map
}

// Init 下载数据
// 功能：根据配置加载地图
// 参数：in-输入配置，cacheDir-缓存目录
// 算法说明：
// 1. 缓存检查：验证缓存目录的有效性
// 2. 文件优先：配置了文件路径则直接读取
// 3. 否则连接MongoDB并经由本地缓存下载
// 4. 校验：车道非空且ID不重复，信号灯所在路口存在
func Init(in config.Input, cacheDir string) (*Input, error) {
	if !preCheckCache(cacheDir) {
		cacheDir = ""
	}
	res := &Input{}
	if in.Map.File != "" {
		var m mapv2.Map
		if err := protoutil.UnmarshalFromFile(&m, in.Map.File); err != nil {
			return nil, fmt.Errorf("load map from file %s: %w", in.Map.File, err)
		}
		res.Map = &m
	} else {
		if in.URI == "" && !in.Map.OnlyCache {
			return nil, errors.New("input.map: neither file nor mongo uri is given")
		}
		var client *mongo.Client
		if in.URI != "" {
			client = mongoutil.NewClient(in.URI)
			defer client.Disconnect(context.Background())
		}
		m, err := load[mapv2.Map](client, in.Map, cacheDir, nil)
		if err != nil {
			return nil, err
		}
		res.Map = m
	}
	if err := validate(res.Map); err != nil {
		return nil, err
	}
	log.Infof("Lane: %v", len(res.Map.Lanes))
	log.Infof("Junction: %v", len(res.Map.Junctions))
	return res, nil
}

// validate 检查地图的基本一致性
func validate(m *mapv2.Map) error {
	if m == nil || len(m.Lanes) == 0 {
		return errors.New("map has no lanes")
	}
	laneIDs := make(map[int32]struct{}, len(m.Lanes))
	for _, l := range m.Lanes {
		if _, ok := laneIDs[l.Id]; ok {
			return fmt.Errorf("map has duplicated lane id %d", l.Id)
		}
		laneIDs[l.Id] = struct{}{}
	}
	for _, j := range m.Junctions {
		for _, id := range j.LaneIds {
			if _, ok := laneIDs[id]; !ok {
				return fmt.Errorf("junction %d references unknown lane %d", j.Id, id)
			}
		}
	}
	return nil
}

// load 从MongoDB或缓存中加载数据（泛型函数）
// 参数：client-MongoDB客户端（只用缓存时可为nil），inputPath-输入路径配置，cacheDir-缓存目录，handler-逐条数据处理函数
func load[T any, PT interface {
	proto.Message
	*T
}](
	client *mongo.Client,
	inputPath config.InputPath,
	cacheDir string,
	handler func(className string, pb any, rawBson bson.Raw) error,
	opts ...*options.FindOptions,
) (PT, error) {
	var downloadFunc func() PT
	var downloadErr error
	if !inputPath.OnlyCache && client != nil {
		coll := mongoutil.GetMongoColl(client, inputPath)
		downloadFunc = func() PT {
			pb, errs := mongoutil.DownloadPbFromMongo[T, PT](context.Background(), coll, nil, handler, opts...)
			if len(errs) > 0 {
				for _, err := range errs {
					log.Errorf("failed to download: %v", err)
				}
				downloadErr = errors.Join(errs...)
			}
			return pb
		}
	}
	log.Infof("start fetching from %s.%s", inputPath.DB, inputPath.Col)
	res, err := cache.LoadWithCache(cacheDir, inputPath, downloadFunc)
	if err != nil {
		return nil, fmt.Errorf("load %s.%s with cache: %w", inputPath.DB, inputPath.Col, err)
	}
	if downloadErr != nil {
		return nil, fmt.Errorf("download %s.%s: %w", inputPath.DB, inputPath.Col, downloadErr)
	}
	log.Infof("finish fetching from %s.%s", inputPath.DB, inputPath.Col)
	return res, nil
}

// preCheckCache 预检查缓存目录
// 返回：true表示启用缓存
func preCheckCache(cacheDir string) bool {
	if cacheDir == "" {
		log.Info("disable input cache")
		return false
	}
	if stat, err := os.Stat(cacheDir); err == nil && stat.IsDir() {
		log.Infof("enable input cache at %s", cacheDir)
		return true
	}
	log.Errorf("disable input cache because invalid dir %s (not exist or file)", cacheDir)
	return false
}
