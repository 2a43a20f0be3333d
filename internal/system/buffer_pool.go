package system

import (
	"image"
	"sync"
)

// ImagePool переиспользует холсты *image.RGBA одного размера между
// перерисовками превью, чтобы не нагружать GC в режиме наблюдения.
type ImagePool struct {
	pools map[image.Rectangle]*sync.Pool
	mu    sync.RWMutex
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Rectangle]*sync.Pool)}
}

var globalPool = NewImagePool()

// GetImage возвращает очищенный холст размера rect из общего пула.
func GetImage(rect image.Rectangle) *image.RGBA {
	return globalPool.Get(rect)
}

// PutImage возвращает холст в общий пул.
func PutImage(img *image.RGBA) {
	globalPool.Put(img)
}

func (p *ImagePool) pool(rect image.Rectangle) *sync.Pool {
	p.mu.RLock()
	pool, exists := p.pools[rect]
	p.mu.RUnlock()
	if exists {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if pool, exists = p.pools[rect]; !exists {
		pool = &sync.Pool{
			New: func() interface{} {
				return image.NewRGBA(rect)
			},
		}
		p.pools[rect] = pool
	}
	return pool
}

// Get возвращает холст, все пиксели которого прозрачны.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	img := p.pool(rect).Get().(*image.RGBA)
	clear(img.Pix)
	return img
}

// Put принимает только холсты, выданные этим пулом.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, exists := p.pools[img.Rect]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
